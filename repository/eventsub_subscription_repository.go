package repository

import (
	"context"
	"fmt"

	"tumulte/database"
	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const subscriptionColumns = `
	id, streamer_id, broadcaster_id, type, twitch_subscription_id, status,
	last_error, retry_count, next_retry_at, created_at, updated_at`

// EventSubSubscriptionRepository implements interfaces.EventSubSubscriptionRepository
type EventSubSubscriptionRepository struct {
	q Queryable
}

// NewEventSubSubscriptionRepository creates a new subscription repository
func NewEventSubSubscriptionRepository(db *database.DB) *EventSubSubscriptionRepository {
	return &EventSubSubscriptionRepository{q: db.Pool}
}

// NewEventSubSubscriptionRepositoryScoped creates a subscription repository bound to a transaction
func NewEventSubSubscriptionRepositoryScoped(tx Queryable) *EventSubSubscriptionRepository {
	return &EventSubSubscriptionRepository{q: tx}
}

// GetByStreamer returns the local subscriptions of a streamer
func (r *EventSubSubscriptionRepository) GetByStreamer(ctx context.Context, streamerID uuid.UUID) ([]*entities.EventSubSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM eventsub_subscriptions WHERE streamer_id = $1 ORDER BY created_at`
	return r.getMany(ctx, query, streamerID)
}

// GetByStatus returns every subscription in status
func (r *EventSubSubscriptionRepository) GetByStatus(ctx context.Context, status entities.SubscriptionStatus) ([]*entities.EventSubSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM eventsub_subscriptions WHERE status = $1 ORDER BY created_at`
	return r.getMany(ctx, query, string(status))
}

// Create stores a subscription
func (r *EventSubSubscriptionRepository) Create(ctx context.Context, sub *entities.EventSubSubscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.Status == "" {
		sub.Status = entities.SubscriptionStatusPending
	}

	query := `
		INSERT INTO eventsub_subscriptions (
			id, streamer_id, broadcaster_id, type, twitch_subscription_id, status,
			last_error, retry_count, next_retry_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		sub.ID, sub.StreamerID, sub.BroadcasterID, sub.Type, sub.TwitchSubscriptionID,
		string(sub.Status), sub.LastError, sub.RetryCount, sub.NextRetryAt,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create eventsub subscription %s for streamer %s: %w", sub.Type, sub.StreamerID, err)
	}

	return nil
}

// Update stores the mutable fields of a subscription
func (r *EventSubSubscriptionRepository) Update(ctx context.Context, sub *entities.EventSubSubscription) error {
	query := `
		UPDATE eventsub_subscriptions SET
			twitch_subscription_id = $2,
			status = $3,
			last_error = $4,
			retry_count = $5,
			next_retry_at = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.q.QueryRow(ctx, query,
		sub.ID, sub.TwitchSubscriptionID, string(sub.Status), sub.LastError,
		sub.RetryCount, sub.NextRetryAt,
	).Scan(&sub.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("eventsub subscription %s not found", sub.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update eventsub subscription %s: %w", sub.ID, err)
	}

	return nil
}

// Delete removes a subscription record
func (r *EventSubSubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM eventsub_subscriptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete eventsub subscription %s: %w", id, err)
	}
	return nil
}

func (r *EventSubSubscriptionRepository) getMany(ctx context.Context, query string, args ...any) ([]*entities.EventSubSubscription, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query eventsub subscriptions: %w", err)
	}
	defer rows.Close()

	var result []*entities.EventSubSubscription
	for rows.Next() {
		var sub entities.EventSubSubscription
		var status string
		err := rows.Scan(
			&sub.ID, &sub.StreamerID, &sub.BroadcasterID, &sub.Type, &sub.TwitchSubscriptionID,
			&status, &sub.LastError, &sub.RetryCount, &sub.NextRetryAt,
			&sub.CreatedAt, &sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan eventsub subscription: %w", err)
		}
		sub.Status = entities.SubscriptionStatus(status)
		result = append(result, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating eventsub subscriptions: %w", err)
	}

	return result, nil
}
