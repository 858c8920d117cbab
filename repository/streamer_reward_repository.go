package repository

import (
	"context"
	"fmt"

	"tumulte/database"
	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const streamerRewardColumns = `
	id, config_id, streamer_id, is_enabled, broadcaster_id, twitch_reward_id,
	twitch_reward_status, deletion_failed_at, deletion_retry_count,
	next_deletion_retry_at, created_at, updated_at`

// StreamerRewardRepository implements interfaces.StreamerRewardRepository
type StreamerRewardRepository struct {
	q Queryable
}

// NewStreamerRewardRepository creates a new streamer reward repository
func NewStreamerRewardRepository(db *database.DB) *StreamerRewardRepository {
	return &StreamerRewardRepository{q: db.Pool}
}

// NewStreamerRewardRepositoryScoped creates a streamer reward repository bound to a transaction
func NewStreamerRewardRepositoryScoped(tx Queryable) *StreamerRewardRepository {
	return &StreamerRewardRepository{q: tx}
}

// GetByConfig returns the per-streamer rewards of a config
func (r *StreamerRewardRepository) GetByConfig(ctx context.Context, configID uuid.UUID) ([]*entities.StreamerReward, error) {
	query := `SELECT ` + streamerRewardColumns + ` FROM streamer_rewards WHERE config_id = $1 ORDER BY created_at`
	return r.getMany(ctx, query, configID)
}

// GetByTwitchRewardID resolves a reward id to its streamer reward
func (r *StreamerRewardRepository) GetByTwitchRewardID(ctx context.Context, rewardID string) (*entities.StreamerReward, error) {
	query := `SELECT ` + streamerRewardColumns + ` FROM streamer_rewards WHERE twitch_reward_id = $1`

	reward, err := scanStreamerReward(r.q.QueryRow(ctx, query, rewardID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streamer reward %s: %w", rewardID, err)
	}
	return reward, nil
}

// GetByRewardStatus returns every streamer reward in status
func (r *StreamerRewardRepository) GetByRewardStatus(ctx context.Context, status entities.RewardStatus) ([]*entities.StreamerReward, error) {
	query := `
		SELECT ` + streamerRewardColumns + `
		FROM streamer_rewards
		WHERE twitch_reward_status = $1
		ORDER BY next_deletion_retry_at NULLS FIRST, created_at`
	return r.getMany(ctx, query, string(status))
}

// GetActiveByStreamer returns the enabled rewards of a streamer that exist remotely
func (r *StreamerRewardRepository) GetActiveByStreamer(ctx context.Context, streamerID uuid.UUID) ([]*entities.StreamerReward, error) {
	query := `
		SELECT ` + streamerRewardColumns + `
		FROM streamer_rewards
		WHERE streamer_id = $1 AND is_enabled = TRUE AND twitch_reward_status = $2
		ORDER BY created_at`
	return r.getMany(ctx, query, streamerID, string(entities.RewardStatusActive))
}

// Create stores a new streamer reward
func (r *StreamerRewardRepository) Create(ctx context.Context, reward *entities.StreamerReward) error {
	if reward.ID == uuid.Nil {
		reward.ID = uuid.New()
	}
	if reward.TwitchRewardStatus == "" {
		reward.TwitchRewardStatus = entities.RewardStatusNotCreated
	}

	query := `
		INSERT INTO streamer_rewards (
			id, config_id, streamer_id, is_enabled, broadcaster_id, twitch_reward_id,
			twitch_reward_status, deletion_failed_at, deletion_retry_count, next_deletion_retry_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		reward.ID, reward.ConfigID, reward.StreamerID, reward.IsEnabled, reward.BroadcasterID,
		reward.TwitchRewardID, string(reward.TwitchRewardStatus), reward.DeletionFailedAt,
		reward.DeletionRetryCount, reward.NextDeletionRetryAt,
	).Scan(&reward.CreatedAt, &reward.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create streamer reward for streamer %s: %w", reward.StreamerID, err)
	}

	return nil
}

// Update stores every mutable field of a streamer reward
func (r *StreamerRewardRepository) Update(ctx context.Context, reward *entities.StreamerReward) error {
	query := `
		UPDATE streamer_rewards SET
			is_enabled = $2,
			broadcaster_id = $3,
			twitch_reward_id = $4,
			twitch_reward_status = $5,
			deletion_failed_at = $6,
			deletion_retry_count = $7,
			next_deletion_retry_at = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.q.QueryRow(ctx, query,
		reward.ID, reward.IsEnabled, reward.BroadcasterID, reward.TwitchRewardID,
		string(reward.TwitchRewardStatus), reward.DeletionFailedAt,
		reward.DeletionRetryCount, reward.NextDeletionRetryAt,
	).Scan(&reward.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("streamer reward %s not found", reward.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update streamer reward %s: %w", reward.ID, err)
	}

	return nil
}

func (r *StreamerRewardRepository) getMany(ctx context.Context, query string, args ...any) ([]*entities.StreamerReward, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query streamer rewards: %w", err)
	}
	defer rows.Close()

	var result []*entities.StreamerReward
	for rows.Next() {
		reward, err := scanStreamerReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streamer reward: %w", err)
		}
		result = append(result, reward)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating streamer rewards: %w", err)
	}

	return result, nil
}

func scanStreamerReward(row pgx.Row) (*entities.StreamerReward, error) {
	var reward entities.StreamerReward
	var status string

	err := row.Scan(
		&reward.ID, &reward.ConfigID, &reward.StreamerID, &reward.IsEnabled,
		&reward.BroadcasterID, &reward.TwitchRewardID, &status, &reward.DeletionFailedAt,
		&reward.DeletionRetryCount, &reward.NextDeletionRetryAt,
		&reward.CreatedAt, &reward.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reward.TwitchRewardStatus = entities.RewardStatus(status)

	return &reward, nil
}
