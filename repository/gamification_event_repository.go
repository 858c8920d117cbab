package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"tumulte/database"
	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `
	id, slug, name, description, type, trigger_type, trigger_config,
	action_type, action_config, default_cost, default_objective_coefficient,
	default_minimum_objective, default_duration_seconds, cooldown_type,
	cooldown_config, is_system_event, created_at, updated_at`

// GamificationEventRepository implements interfaces.GamificationEventRepository
type GamificationEventRepository struct {
	q Queryable
}

// NewGamificationEventRepository creates a new event repository
func NewGamificationEventRepository(db *database.DB) *GamificationEventRepository {
	return &GamificationEventRepository{q: db.Pool}
}

// NewGamificationEventRepositoryScoped creates an event repository bound to a transaction
func NewGamificationEventRepositoryScoped(tx Queryable) *GamificationEventRepository {
	return &GamificationEventRepository{q: tx}
}

// GetByID retrieves an event definition by id
func (r *GamificationEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.GamificationEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM gamification_events WHERE id = $1`

	event, err := scanEvent(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gamification event %s: %w", id, err)
	}
	return event, nil
}

// GetBySlug retrieves an event definition by slug
func (r *GamificationEventRepository) GetBySlug(ctx context.Context, slug string) (*entities.GamificationEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM gamification_events WHERE slug = $1`

	event, err := scanEvent(r.q.QueryRow(ctx, query, slug))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gamification event %q: %w", slug, err)
	}
	return event, nil
}

// GetAll returns every event definition ordered by slug
func (r *GamificationEventRepository) GetAll(ctx context.Context) ([]*entities.GamificationEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM gamification_events ORDER BY slug`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query gamification events: %w", err)
	}
	defer rows.Close()

	var result []*entities.GamificationEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gamification event: %w", err)
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gamification events: %w", err)
	}

	return result, nil
}

// Create stores a new event definition
func (r *GamificationEventRepository) Create(ctx context.Context, event *entities.GamificationEvent) error {
	triggerConfig, err := entities.EncodeTriggerConfig(event.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to encode trigger config: %w", err)
	}
	actionConfig, err := entities.EncodeActionConfig(event.ActionConfig)
	if err != nil {
		return fmt.Errorf("failed to encode action config: %w", err)
	}
	cooldownConfig, err := json.Marshal(event.CooldownConfig)
	if err != nil {
		return fmt.Errorf("failed to encode cooldown config: %w", err)
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CooldownType == "" {
		event.CooldownType = entities.CooldownTypeNone
	}

	query := `
		INSERT INTO gamification_events (
			id, slug, name, description, type, trigger_type, trigger_config,
			action_type, action_config, default_cost, default_objective_coefficient,
			default_minimum_objective, default_duration_seconds, cooldown_type,
			cooldown_config, is_system_event
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`

	err = r.q.QueryRow(ctx, query,
		event.ID, event.Slug, event.Name, event.Description, string(event.Type),
		string(event.TriggerType), triggerConfig, string(event.ActionType), actionConfig,
		event.DefaultCost, event.DefaultObjectiveCoefficient, event.DefaultMinimumObjective,
		event.DefaultDurationSeconds, string(event.CooldownType), cooldownConfig, event.IsSystemEvent,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create gamification event %q: %w", event.Slug, err)
	}

	return nil
}

func scanEvent(row pgx.Row) (*entities.GamificationEvent, error) {
	var event entities.GamificationEvent
	var eventType, triggerType, actionType, cooldownType string
	var triggerConfig, actionConfig, cooldownConfig []byte

	err := row.Scan(
		&event.ID, &event.Slug, &event.Name, &event.Description, &eventType,
		&triggerType, &triggerConfig, &actionType, &actionConfig,
		&event.DefaultCost, &event.DefaultObjectiveCoefficient, &event.DefaultMinimumObjective,
		&event.DefaultDurationSeconds, &cooldownType, &cooldownConfig, &event.IsSystemEvent,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Type = entities.GamificationEventType(eventType)
	event.TriggerType = entities.TriggerType(triggerType)
	event.ActionType = entities.ActionType(actionType)
	event.CooldownType = entities.CooldownType(cooldownType)

	event.TriggerConfig, err = entities.DecodeTriggerConfig(event.TriggerType, triggerConfig)
	if err != nil {
		return nil, fmt.Errorf("event %q: %w", event.Slug, err)
	}
	event.ActionConfig, err = entities.DecodeActionConfig(event.ActionType, actionConfig)
	if err != nil {
		return nil, fmt.Errorf("event %q: %w", event.Slug, err)
	}
	if len(cooldownConfig) > 0 {
		if err := json.Unmarshal(cooldownConfig, &event.CooldownConfig); err != nil {
			return nil, fmt.Errorf("event %q: invalid cooldown config: %w", event.Slug, err)
		}
	}

	return &event, nil
}
