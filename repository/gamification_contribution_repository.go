package repository

import (
	"context"
	"fmt"
	"time"

	"tumulte/database"
	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const contributionColumns = `
	id, instance_id, streamer_id, twitch_user_id, twitch_username, amount,
	twitch_redemption_id, refunded, refunded_at, created_at`

// GamificationContributionRepository implements interfaces.GamificationContributionRepository
type GamificationContributionRepository struct {
	q Queryable
}

// NewGamificationContributionRepository creates a new contribution repository
func NewGamificationContributionRepository(db *database.DB) *GamificationContributionRepository {
	return &GamificationContributionRepository{q: db.Pool}
}

// NewGamificationContributionRepositoryScoped creates a contribution repository bound to a transaction
func NewGamificationContributionRepositoryScoped(tx Queryable) *GamificationContributionRepository {
	return &GamificationContributionRepository{q: tx}
}

// Create stores a contribution. It returns false when the redemption id is
// already recorded, leaving the existing row untouched.
func (r *GamificationContributionRepository) Create(ctx context.Context, contribution *entities.GamificationContribution) (bool, error) {
	if contribution.ID == uuid.Nil {
		contribution.ID = uuid.New()
	}
	if contribution.Amount == 0 {
		contribution.Amount = 1
	}

	query := `
		INSERT INTO gamification_contributions (
			id, instance_id, streamer_id, twitch_user_id, twitch_username, amount,
			twitch_redemption_id, refunded, refunded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (twitch_redemption_id) DO NOTHING
		RETURNING created_at`

	err := r.q.QueryRow(ctx, query,
		contribution.ID, contribution.InstanceID, contribution.StreamerID,
		contribution.TwitchUserID, contribution.TwitchUsername, contribution.Amount,
		contribution.TwitchRedemptionID, contribution.Refunded, contribution.RefundedAt,
	).Scan(&contribution.CreatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create contribution for redemption %s: %w", contribution.TwitchRedemptionID, err)
	}

	return true, nil
}

// GetByRedemptionID retrieves the contribution recorded for a redemption
func (r *GamificationContributionRepository) GetByRedemptionID(ctx context.Context, redemptionID string) (*entities.GamificationContribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM gamification_contributions WHERE twitch_redemption_id = $1`

	contribution, err := scanContribution(r.q.QueryRow(ctx, query, redemptionID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution for redemption %s: %w", redemptionID, err)
	}
	return contribution, nil
}

// GetByInstance returns the contributions of an instance in arrival order
func (r *GamificationContributionRepository) GetByInstance(ctx context.Context, instanceID uuid.UUID) ([]*entities.GamificationContribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM gamification_contributions
		WHERE instance_id = $1
		ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions of instance %s: %w", instanceID, err)
	}
	defer rows.Close()

	var result []*entities.GamificationContribution
	for rows.Next() {
		contribution, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		result = append(result, contribution)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contributions: %w", err)
	}

	return result, nil
}

// MarkRefunded flags a contribution as refunded. Refunding twice is a no-op.
func (r *GamificationContributionRepository) MarkRefunded(ctx context.Context, id uuid.UUID, refundedAt time.Time) error {
	query := `
		UPDATE gamification_contributions
		SET refunded = TRUE, refunded_at = $2
		WHERE id = $1 AND refunded = FALSE`

	if _, err := r.q.Exec(ctx, query, id, refundedAt); err != nil {
		return fmt.Errorf("failed to mark contribution %s refunded: %w", id, err)
	}

	return nil
}

func scanContribution(row pgx.Row) (*entities.GamificationContribution, error) {
	var c entities.GamificationContribution
	err := row.Scan(
		&c.ID, &c.InstanceID, &c.StreamerID, &c.TwitchUserID, &c.TwitchUsername,
		&c.Amount, &c.TwitchRedemptionID, &c.Refunded, &c.RefundedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
