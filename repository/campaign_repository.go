package repository

import (
	"context"
	"fmt"

	"tumulte/database"
	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CampaignRepository implements interfaces.CampaignRepository
type CampaignRepository struct {
	q Queryable
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *database.DB) *CampaignRepository {
	return &CampaignRepository{q: db.Pool}
}

// NewCampaignRepositoryScoped creates a campaign repository bound to a transaction
func NewCampaignRepositoryScoped(tx Queryable) *CampaignRepository {
	return &CampaignRepository{q: tx}
}

// GetByID retrieves a campaign by id
func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Campaign, error) {
	query := `
		SELECT id, name, owner_streamer_id, vtt_connection_id, created_at
		FROM campaigns
		WHERE id = $1`

	var campaign entities.Campaign
	err := r.q.QueryRow(ctx, query, id).Scan(
		&campaign.ID, &campaign.Name, &campaign.OwnerStreamerID,
		&campaign.VTTConnectionID, &campaign.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign %s: %w", id, err)
	}

	return &campaign, nil
}

// GetMemberStreamers returns the owner and the members of a campaign that
// are still active, owner first then by join date
func (r *CampaignRepository) GetMemberStreamers(ctx context.Context, campaignID uuid.UUID) ([]*entities.Streamer, error) {
	query := `
		SELECT s.id, s.twitch_user_id, s.twitch_login, s.display_name, s.is_active, s.created_at
		FROM campaigns c
		JOIN streamers s ON s.id = c.owner_streamer_id
			OR s.id IN (SELECT streamer_id FROM campaign_members WHERE campaign_id = c.id)
		LEFT JOIN campaign_members m ON m.campaign_id = c.id AND m.streamer_id = s.id
		WHERE c.id = $1 AND s.is_active = TRUE
		ORDER BY (s.id = c.owner_streamer_id) DESC, m.joined_at NULLS FIRST, s.created_at`

	rows, err := r.q.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members of campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	var result []*entities.Streamer
	for rows.Next() {
		streamer, err := scanStreamer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign member: %w", err)
		}
		result = append(result, streamer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaign members: %w", err)
	}

	return result, nil
}

// StreamerRepository implements interfaces.StreamerRepository
type StreamerRepository struct {
	q Queryable
}

// NewStreamerRepository creates a new streamer repository
func NewStreamerRepository(db *database.DB) *StreamerRepository {
	return &StreamerRepository{q: db.Pool}
}

// NewStreamerRepositoryScoped creates a streamer repository bound to a transaction
func NewStreamerRepositoryScoped(tx Queryable) *StreamerRepository {
	return &StreamerRepository{q: tx}
}

const streamerColumns = `id, twitch_user_id, twitch_login, display_name, is_active, created_at`

// GetByID retrieves a streamer by id
func (r *StreamerRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Streamer, error) {
	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE id = $1`

	streamer, err := scanStreamer(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streamer %s: %w", id, err)
	}
	return streamer, nil
}

// GetByTwitchUserID retrieves a streamer by Twitch user id
func (r *StreamerRepository) GetByTwitchUserID(ctx context.Context, twitchUserID string) (*entities.Streamer, error) {
	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE twitch_user_id = $1`

	streamer, err := scanStreamer(r.q.QueryRow(ctx, query, twitchUserID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streamer by twitch id %s: %w", twitchUserID, err)
	}
	return streamer, nil
}

// GetActive returns every active streamer
func (r *StreamerRepository) GetActive(ctx context.Context) ([]*entities.Streamer, error) {
	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE is_active = TRUE ORDER BY created_at`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active streamers: %w", err)
	}
	defer rows.Close()

	var result []*entities.Streamer
	for rows.Next() {
		streamer, err := scanStreamer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streamer: %w", err)
		}
		result = append(result, streamer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating streamers: %w", err)
	}

	return result, nil
}

func scanStreamer(row pgx.Row) (*entities.Streamer, error) {
	var streamer entities.Streamer
	err := row.Scan(
		&streamer.ID, &streamer.TwitchUserID, &streamer.TwitchLogin,
		&streamer.DisplayName, &streamer.IsActive, &streamer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &streamer, nil
}
