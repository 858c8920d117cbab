package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tumulte/database"
	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const instanceColumns = `
	id, campaign_id, event_id, streamer_id, type, status, trigger_data,
	objective_target, current_progress, starts_at, expires_at, armed_at,
	completed_at, cooldown_ends_at, execution_status, executed_at,
	result_data, created_at, updated_at`

// openInstanceKeyIndex is the partial unique index guarding one open instance per key
const openInstanceKeyIndex = "idx_instances_open_key"

// GamificationInstanceRepository implements interfaces.GamificationInstanceRepository
type GamificationInstanceRepository struct {
	q Queryable
}

// NewGamificationInstanceRepository creates a new instance repository
func NewGamificationInstanceRepository(db *database.DB) *GamificationInstanceRepository {
	return &GamificationInstanceRepository{q: db.Pool}
}

// NewGamificationInstanceRepositoryScoped creates an instance repository bound to a transaction
func NewGamificationInstanceRepositoryScoped(tx Queryable) *GamificationInstanceRepository {
	return &GamificationInstanceRepository{q: tx}
}

// Create stores a new instance. A second open instance on the same key is
// rejected by the database with ErrDuplicateOpenInstance.
func (r *GamificationInstanceRepository) Create(ctx context.Context, instance *entities.GamificationInstance) error {
	triggerData, err := encodeNullableJSON(instance.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to encode trigger data: %w", err)
	}
	resultData, err := encodeNullableJSON(instance.ResultData)
	if err != nil {
		return fmt.Errorf("failed to encode result data: %w", err)
	}

	if instance.ID == uuid.Nil {
		instance.ID = uuid.New()
	}
	if instance.ExecutionStatus == "" {
		instance.ExecutionStatus = entities.ExecutionStatusPending
	}

	query := `
		INSERT INTO gamification_instances (
			id, campaign_id, event_id, streamer_id, type, status, trigger_data,
			objective_target, current_progress, starts_at, expires_at, armed_at,
			completed_at, cooldown_ends_at, execution_status, executed_at, result_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`

	err = r.q.QueryRow(ctx, query,
		instance.ID, instance.CampaignID, instance.EventID, instance.StreamerID,
		string(instance.Type), string(instance.Status), triggerData,
		instance.ObjectiveTarget, instance.CurrentProgress, instance.StartsAt,
		instance.ExpiresAt, instance.ArmedAt, instance.CompletedAt, instance.CooldownEndsAt,
		string(instance.ExecutionStatus), instance.ExecutedAt, resultData,
	).Scan(&instance.CreatedAt, &instance.UpdatedAt)
	if isUniqueViolation(err, openInstanceKeyIndex) {
		return entities.ErrDuplicateOpenInstance
	}
	if err != nil {
		return fmt.Errorf("failed to create gamification instance: %w", err)
	}

	return nil
}

// GetByID retrieves an instance by id
func (r *GamificationInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.GamificationInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM gamification_instances WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves an instance and locks its row until the transaction ends
func (r *GamificationInstanceRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.GamificationInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM gamification_instances WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// GetOpenByKey returns the active or armed instance occupying a key
func (r *GamificationInstanceRepository) GetOpenByKey(ctx context.Context, key entities.InstanceKey) (*entities.GamificationInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM gamification_instances
		WHERE event_id = $1 AND campaign_id = $2 AND streamer_id IS NOT DISTINCT FROM $3
			AND status IN ('active', 'armed')
		ORDER BY created_at DESC
		LIMIT 1`
	return r.getOne(ctx, query, key.EventID, key.CampaignID, key.StreamerID)
}

// GetOpenByCampaign returns the active or armed instances of a campaign
func (r *GamificationInstanceRepository) GetOpenByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.GamificationInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM gamification_instances
		WHERE campaign_id = $1 AND status IN ('active', 'armed')
		ORDER BY created_at`
	return r.getMany(ctx, query, campaignID)
}

// GetLatestCooldownEnd returns the furthest cooldown end recorded for a key
func (r *GamificationInstanceRepository) GetLatestCooldownEnd(ctx context.Context, key entities.InstanceKey) (*time.Time, error) {
	query := `
		SELECT MAX(cooldown_ends_at)
		FROM gamification_instances
		WHERE event_id = $1 AND campaign_id = $2 AND streamer_id IS NOT DISTINCT FROM $3`

	var end *time.Time
	err := r.q.QueryRow(ctx, query, key.EventID, key.CampaignID, key.StreamerID).Scan(&end)
	if err != nil {
		return nil, fmt.Errorf("failed to get cooldown end: %w", err)
	}

	return end, nil
}

// GetExpirable returns the open instances whose deadline is before now
func (r *GamificationInstanceRepository) GetExpirable(ctx context.Context, now time.Time) ([]*entities.GamificationInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM gamification_instances
		WHERE status IN ('active', 'armed') AND expires_at < $1
		ORDER BY expires_at`
	return r.getMany(ctx, query, now)
}

// GetCampaignsWithArmed returns the campaigns holding an armed instance whose action has not run
func (r *GamificationInstanceRepository) GetCampaignsWithArmed(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT campaign_id
		FROM gamification_instances
		WHERE status = 'armed' AND execution_status = 'pending'`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns with armed instances: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaign ids: %w", err)
	}

	return ids, nil
}

// UpdateProgress stores the recomputed progress of an open instance
func (r *GamificationInstanceRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	query := `
		UPDATE gamification_instances
		SET current_progress = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('active', 'armed')`

	tag, err := r.q.Exec(ctx, query, id, progress)
	if err != nil {
		return fmt.Errorf("failed to update progress of instance %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("instance %s: %w", id, entities.ErrInstanceTerminal)
	}

	return nil
}

// TransitionStatus moves an instance to `to` only when its current status is
// one of `from`. It returns false when another caller got there first.
func (r *GamificationInstanceRepository) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	from []entities.InstanceStatus,
	to entities.InstanceStatus,
	at time.Time,
) (bool, error) {
	query := `
		UPDATE gamification_instances
		SET status = $3,
			armed_at = CASE WHEN $3 = 'armed' THEN $4 ELSE armed_at END,
			completed_at = CASE WHEN $3 = 'completed' THEN $4 ELSE completed_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)`

	tag, err := r.q.Exec(ctx, query, id, statusStrings(from), string(to), at)
	if err != nil {
		return false, fmt.Errorf("failed to move instance %s to %s: %w", id, to, err)
	}

	return tag.RowsAffected() == 1, nil
}

// ClaimForExecution completes an armed instance whose action has not run
func (r *GamificationInstanceRepository) ClaimForExecution(ctx context.Context, id uuid.UUID, completedAt time.Time, cooldownEndsAt *time.Time) (bool, error) {
	query := `
		UPDATE gamification_instances
		SET status = 'completed',
			completed_at = $2,
			cooldown_ends_at = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = 'armed' AND execution_status = 'pending'`

	tag, err := r.q.Exec(ctx, query, id, completedAt, cooldownEndsAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim instance %s: %w", id, err)
	}

	return tag.RowsAffected() == 1, nil
}

// RecordExecution stores the action outcome of a claimed instance
func (r *GamificationInstanceRepository) RecordExecution(
	ctx context.Context,
	id uuid.UUID,
	status entities.ExecutionStatus,
	executedAt time.Time,
	result *entities.ResultData,
) error {
	resultData, err := encodeNullableJSON(result)
	if err != nil {
		return fmt.Errorf("failed to encode result data: %w", err)
	}

	query := `
		UPDATE gamification_instances
		SET execution_status = $2, executed_at = $3, result_data = $4, updated_at = NOW()
		WHERE id = $1 AND execution_status = 'pending'`

	tag, err := r.q.Exec(ctx, query, id, string(status), executedAt, resultData)
	if err != nil {
		return fmt.Errorf("failed to record execution of instance %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("execution of instance %s already recorded", id)
	}

	return nil
}

func (r *GamificationInstanceRepository) getOne(ctx context.Context, query string, args ...any) (*entities.GamificationInstance, error) {
	instance, err := scanInstance(r.q.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gamification instance: %w", err)
	}
	return instance, nil
}

func (r *GamificationInstanceRepository) getMany(ctx context.Context, query string, args ...any) ([]*entities.GamificationInstance, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gamification instances: %w", err)
	}
	defer rows.Close()

	var result []*entities.GamificationInstance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gamification instance: %w", err)
		}
		result = append(result, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gamification instances: %w", err)
	}

	return result, nil
}

func scanInstance(row pgx.Row) (*entities.GamificationInstance, error) {
	var instance entities.GamificationInstance
	var eventType, status, executionStatus string
	var triggerData, resultData []byte

	err := row.Scan(
		&instance.ID, &instance.CampaignID, &instance.EventID, &instance.StreamerID,
		&eventType, &status, &triggerData, &instance.ObjectiveTarget, &instance.CurrentProgress,
		&instance.StartsAt, &instance.ExpiresAt, &instance.ArmedAt, &instance.CompletedAt,
		&instance.CooldownEndsAt, &executionStatus, &instance.ExecutedAt, &resultData,
		&instance.CreatedAt, &instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	instance.Type = entities.GamificationEventType(eventType)
	instance.Status = entities.InstanceStatus(status)
	instance.ExecutionStatus = entities.ExecutionStatus(executionStatus)

	if len(triggerData) > 0 {
		instance.TriggerData = &entities.TriggerData{}
		if err := json.Unmarshal(triggerData, instance.TriggerData); err != nil {
			return nil, fmt.Errorf("invalid trigger data on instance %s: %w", instance.ID, err)
		}
	}
	if len(resultData) > 0 {
		instance.ResultData = &entities.ResultData{}
		if err := json.Unmarshal(resultData, instance.ResultData); err != nil {
			return nil, fmt.Errorf("invalid result data on instance %s: %w", instance.ID, err)
		}
	}

	return &instance, nil
}

func statusStrings(statuses []entities.InstanceStatus) []string {
	result := make([]string, len(statuses))
	for i, s := range statuses {
		result[i] = string(s)
	}
	return result
}

// encodeNullableJSON marshals v, mapping a nil pointer to SQL NULL
func encodeNullableJSON[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
