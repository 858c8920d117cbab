package testutil

import (
	"context"
	"fmt"
	"testing"

	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// SeedStreamer inserts an active streamer
func (td *TestDatabase) SeedStreamer(t *testing.T, twitchUserID string) *entities.Streamer {
	t.Helper()
	streamer := &entities.Streamer{
		ID:           uuid.New(),
		TwitchUserID: twitchUserID,
		TwitchLogin:  "login_" + twitchUserID,
		DisplayName:  "Streamer " + twitchUserID,
		IsActive:     true,
	}

	err := td.DB.QueryRow(context.Background(), `
		INSERT INTO streamers (id, twitch_user_id, twitch_login, display_name, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		streamer.ID, streamer.TwitchUserID, streamer.TwitchLogin, streamer.DisplayName, streamer.IsActive,
	).Scan(&streamer.CreatedAt)
	require.NoError(t, err)

	return streamer
}

// SeedCampaign inserts a campaign owned by owner with the given members
func (td *TestDatabase) SeedCampaign(t *testing.T, owner *entities.Streamer, members ...*entities.Streamer) *entities.Campaign {
	t.Helper()
	campaign := &entities.Campaign{
		ID:              uuid.New(),
		Name:            "Campaign " + owner.TwitchLogin,
		OwnerStreamerID: owner.ID,
		VTTConnectionID: "conn-" + owner.TwitchUserID,
	}

	err := td.DB.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		err := tx.QueryRow(context.Background(), `
			INSERT INTO campaigns (id, name, owner_streamer_id, vtt_connection_id)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at`,
			campaign.ID, campaign.Name, campaign.OwnerStreamerID, campaign.VTTConnectionID,
		).Scan(&campaign.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert campaign: %w", err)
		}

		for i, member := range members {
			_, err := tx.Exec(context.Background(), `
				INSERT INTO campaign_members (campaign_id, streamer_id, joined_at)
				VALUES ($1, $2, NOW() + make_interval(secs => $3))`,
				campaign.ID, member.ID, float64(i),
			)
			if err != nil {
				return fmt.Errorf("failed to insert campaign member: %w", err)
			}
		}
		return nil
	})
	require.NoError(t, err)

	return campaign
}

// SeedCriticalityRule inserts a criticality rule
func (td *TestDatabase) SeedCriticalityRule(t *testing.T, rule *entities.CampaignCriticalityRule) {
	t.Helper()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}

	err := td.DB.QueryRow(context.Background(), `
		INSERT INTO campaign_criticality_rules (
			id, campaign_id, label, dice_formula, operator, value, result_type, priority, is_enabled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		rule.ID, rule.CampaignID, rule.Label, rule.DiceFormula, string(rule.Operator),
		rule.Value, rule.ResultType, rule.Priority, rule.IsEnabled,
	).Scan(&rule.CreatedAt)
	require.NoError(t, err)
}

// NewTestEvent builds a group chat message event with a manual trigger
func NewTestEvent(slug string) *entities.GamificationEvent {
	return &entities.GamificationEvent{
		Slug:                        slug,
		Name:                        "Event " + slug,
		Description:                 "test event",
		Type:                        entities.EventTypeGroup,
		TriggerType:                 entities.TriggerTypeManual,
		TriggerConfig:               &entities.ManualTriggerConfig{},
		ActionType:                  entities.ActionTypeChatMessage,
		ActionConfig:                &entities.ChatMessageActionConfig{ChatMessage: &entities.ChatMessageConfig{Content: "The dice gods laugh"}},
		DefaultCost:                 100,
		DefaultObjectiveCoefficient: 0.1,
		DefaultMinimumObjective:     3,
		DefaultDurationSeconds:      300,
		CooldownType:                entities.CooldownTypeTime,
		CooldownConfig:              entities.CooldownConfig{DurationSeconds: 600},
	}
}
