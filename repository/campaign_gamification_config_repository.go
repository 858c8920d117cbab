package repository

import (
	"context"
	"fmt"

	"tumulte/database"
	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const configColumns = `
	id, campaign_id, event_id, is_enabled, cost, objective_coefficient,
	minimum_objective, duration_seconds, cooldown_seconds, broadcaster_id,
	twitch_reward_id, twitch_reward_status, deletion_failed_at,
	deletion_retry_count, next_deletion_retry_at, created_at, updated_at`

// CampaignGamificationConfigRepository implements interfaces.CampaignGamificationConfigRepository
type CampaignGamificationConfigRepository struct {
	q Queryable
}

// NewCampaignGamificationConfigRepository creates a new config repository
func NewCampaignGamificationConfigRepository(db *database.DB) *CampaignGamificationConfigRepository {
	return &CampaignGamificationConfigRepository{q: db.Pool}
}

// NewCampaignGamificationConfigRepositoryScoped creates a config repository bound to a transaction
func NewCampaignGamificationConfigRepositoryScoped(tx Queryable) *CampaignGamificationConfigRepository {
	return &CampaignGamificationConfigRepository{q: tx}
}

// GetByID retrieves a config by id
func (r *CampaignGamificationConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.CampaignGamificationConfig, error) {
	query := `SELECT ` + configColumns + ` FROM campaign_gamification_configs WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByCampaignAndEvent retrieves the config of an event within a campaign
func (r *CampaignGamificationConfigRepository) GetByCampaignAndEvent(ctx context.Context, campaignID, eventID uuid.UUID) (*entities.CampaignGamificationConfig, error) {
	query := `SELECT ` + configColumns + ` FROM campaign_gamification_configs WHERE campaign_id = $1 AND event_id = $2`
	return r.getOne(ctx, query, campaignID, eventID)
}

// GetByTwitchRewardID resolves a reward id to its config
func (r *CampaignGamificationConfigRepository) GetByTwitchRewardID(ctx context.Context, rewardID string) (*entities.CampaignGamificationConfig, error) {
	query := `SELECT ` + configColumns + ` FROM campaign_gamification_configs WHERE twitch_reward_id = $1`
	return r.getOne(ctx, query, rewardID)
}

// GetEnabledByCampaign returns the enabled configs of a campaign
func (r *CampaignGamificationConfigRepository) GetEnabledByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.CampaignGamificationConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM campaign_gamification_configs
		WHERE campaign_id = $1 AND is_enabled = TRUE
		ORDER BY created_at`
	return r.getMany(ctx, query, campaignID)
}

// GetByRewardStatus returns every config whose reward is in status
func (r *CampaignGamificationConfigRepository) GetByRewardStatus(ctx context.Context, status entities.RewardStatus) ([]*entities.CampaignGamificationConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM campaign_gamification_configs
		WHERE twitch_reward_status = $1
		ORDER BY next_deletion_retry_at NULLS FIRST, created_at`
	return r.getMany(ctx, query, string(status))
}

// Create stores a new config
func (r *CampaignGamificationConfigRepository) Create(ctx context.Context, config *entities.CampaignGamificationConfig) error {
	if config.ID == uuid.Nil {
		config.ID = uuid.New()
	}
	if config.TwitchRewardStatus == "" {
		config.TwitchRewardStatus = entities.RewardStatusNotCreated
	}

	query := `
		INSERT INTO campaign_gamification_configs (
			id, campaign_id, event_id, is_enabled, cost, objective_coefficient,
			minimum_objective, duration_seconds, cooldown_seconds, broadcaster_id,
			twitch_reward_id, twitch_reward_status, deletion_failed_at,
			deletion_retry_count, next_deletion_retry_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		config.ID, config.CampaignID, config.EventID, config.IsEnabled, config.Cost,
		config.ObjectiveCoefficient, config.MinimumObjective, config.DurationSeconds,
		config.CooldownSeconds, config.BroadcasterID, config.TwitchRewardID,
		string(config.TwitchRewardStatus), config.DeletionFailedAt,
		config.DeletionRetryCount, config.NextDeletionRetryAt,
	).Scan(&config.CreatedAt, &config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create gamification config for campaign %s: %w", config.CampaignID, err)
	}

	return nil
}

// Update stores every mutable field of a config
func (r *CampaignGamificationConfigRepository) Update(ctx context.Context, config *entities.CampaignGamificationConfig) error {
	query := `
		UPDATE campaign_gamification_configs SET
			is_enabled = $2,
			cost = $3,
			objective_coefficient = $4,
			minimum_objective = $5,
			duration_seconds = $6,
			cooldown_seconds = $7,
			broadcaster_id = $8,
			twitch_reward_id = $9,
			twitch_reward_status = $10,
			deletion_failed_at = $11,
			deletion_retry_count = $12,
			next_deletion_retry_at = $13,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.q.QueryRow(ctx, query,
		config.ID, config.IsEnabled, config.Cost, config.ObjectiveCoefficient,
		config.MinimumObjective, config.DurationSeconds, config.CooldownSeconds,
		config.BroadcasterID, config.TwitchRewardID, string(config.TwitchRewardStatus),
		config.DeletionFailedAt, config.DeletionRetryCount, config.NextDeletionRetryAt,
	).Scan(&config.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("gamification config %s: %w", config.ID, entities.ErrConfigNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update gamification config %s: %w", config.ID, err)
	}

	return nil
}

func (r *CampaignGamificationConfigRepository) getOne(ctx context.Context, query string, args ...any) (*entities.CampaignGamificationConfig, error) {
	config, err := scanConfig(r.q.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gamification config: %w", err)
	}
	return config, nil
}

func (r *CampaignGamificationConfigRepository) getMany(ctx context.Context, query string, args ...any) ([]*entities.CampaignGamificationConfig, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gamification configs: %w", err)
	}
	defer rows.Close()

	var result []*entities.CampaignGamificationConfig
	for rows.Next() {
		config, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gamification config: %w", err)
		}
		result = append(result, config)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gamification configs: %w", err)
	}

	return result, nil
}

func scanConfig(row pgx.Row) (*entities.CampaignGamificationConfig, error) {
	var config entities.CampaignGamificationConfig
	var status string

	err := row.Scan(
		&config.ID, &config.CampaignID, &config.EventID, &config.IsEnabled, &config.Cost,
		&config.ObjectiveCoefficient, &config.MinimumObjective, &config.DurationSeconds,
		&config.CooldownSeconds, &config.BroadcasterID, &config.TwitchRewardID, &status,
		&config.DeletionFailedAt, &config.DeletionRetryCount, &config.NextDeletionRetryAt,
		&config.CreatedAt, &config.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	config.TwitchRewardStatus = entities.RewardStatus(status)

	return &config, nil
}
