package entities

import (
	"time"

	"github.com/google/uuid"
)

// RewardStatus tracks the remote Twitch reward linked to a config
type RewardStatus string

const (
	RewardStatusNotCreated RewardStatus = "not_created"
	RewardStatusActive     RewardStatus = "active"
	RewardStatusPaused     RewardStatus = "paused"
	RewardStatusOrphaned   RewardStatus = "orphaned"
	RewardStatusDeleted    RewardStatus = "deleted"
)

// RewardLink is the local view of a Twitch channel point reward, including
// the bookkeeping used to retry a failed remote deletion.
type RewardLink struct {
	BroadcasterID       string       `db:"broadcaster_id"`
	TwitchRewardID      *string      `db:"twitch_reward_id"`
	TwitchRewardStatus  RewardStatus `db:"twitch_reward_status"`
	DeletionFailedAt    *time.Time   `db:"deletion_failed_at"`
	DeletionRetryCount  int          `db:"deletion_retry_count"`
	NextDeletionRetryAt *time.Time   `db:"next_deletion_retry_at"`
}

// HasReward returns true when a remote reward id is recorded
func (l *RewardLink) HasReward() bool {
	return l.TwitchRewardID != nil && *l.TwitchRewardID != ""
}

// IsOrphaned returns true when a previous remote deletion failed
func (l *RewardLink) IsOrphaned() bool {
	return l.TwitchRewardStatus == RewardStatusOrphaned
}

// IsDueForRetry returns true when an orphan may be retried at now
func (l *RewardLink) IsDueForRetry(now time.Time) bool {
	if !l.IsOrphaned() {
		return false
	}
	return l.NextDeletionRetryAt == nil || !l.NextDeletionRetryAt.After(now)
}

// MarkActive records a freshly created remote reward
func (l *RewardLink) MarkActive(rewardID string) {
	l.TwitchRewardID = &rewardID
	l.TwitchRewardStatus = RewardStatusActive
	l.DeletionFailedAt = nil
	l.DeletionRetryCount = 0
	l.NextDeletionRetryAt = nil
}

// MarkDeleted clears the remote reward after a successful deletion
func (l *RewardLink) MarkDeleted() {
	l.TwitchRewardID = nil
	l.TwitchRewardStatus = RewardStatusDeleted
	l.DeletionFailedAt = nil
	l.DeletionRetryCount = 0
	l.NextDeletionRetryAt = nil
}

// MarkOrphaned records a failed remote deletion and schedules the next retry
func (l *RewardLink) MarkOrphaned(failedAt, nextRetryAt time.Time) {
	l.TwitchRewardStatus = RewardStatusOrphaned
	l.DeletionFailedAt = &failedAt
	l.DeletionRetryCount++
	l.NextDeletionRetryAt = &nextRetryAt
}

// CampaignGamificationConfig is a campaign's override of an event definition
type CampaignGamificationConfig struct {
	ID                   uuid.UUID `db:"id"`
	CampaignID           uuid.UUID `db:"campaign_id"`
	EventID              uuid.UUID `db:"event_id"`
	IsEnabled            bool      `db:"is_enabled"`
	Cost                 *int      `db:"cost"`
	ObjectiveCoefficient *float64  `db:"objective_coefficient"`
	MinimumObjective     *int      `db:"minimum_objective"`
	DurationSeconds      *int      `db:"duration_seconds"`
	CooldownSeconds      *int      `db:"cooldown_seconds"`
	RewardLink
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// EffectiveCost returns the campaign override or the event default
func (c *CampaignGamificationConfig) EffectiveCost(event *GamificationEvent) int {
	if c.Cost != nil {
		return *c.Cost
	}
	return event.DefaultCost
}

// EffectiveObjectiveCoefficient returns the campaign override or the event default
func (c *CampaignGamificationConfig) EffectiveObjectiveCoefficient(event *GamificationEvent) float64 {
	if c.ObjectiveCoefficient != nil {
		return *c.ObjectiveCoefficient
	}
	return event.DefaultObjectiveCoefficient
}

// EffectiveMinimumObjective returns the campaign override or the event default
func (c *CampaignGamificationConfig) EffectiveMinimumObjective(event *GamificationEvent) int {
	if c.MinimumObjective != nil {
		return *c.MinimumObjective
	}
	return event.DefaultMinimumObjective
}

// EffectiveDuration returns how long an instance stays open
func (c *CampaignGamificationConfig) EffectiveDuration(event *GamificationEvent) time.Duration {
	if c.DurationSeconds != nil {
		return time.Duration(*c.DurationSeconds) * time.Second
	}
	return time.Duration(event.DefaultDurationSeconds) * time.Second
}

// EffectiveCooldown returns the cooldown applied after completion, zero if none
func (c *CampaignGamificationConfig) EffectiveCooldown(event *GamificationEvent) time.Duration {
	if c.CooldownSeconds != nil {
		return time.Duration(*c.CooldownSeconds) * time.Second
	}
	if event.HasTimeCooldown() {
		return time.Duration(event.CooldownConfig.DurationSeconds) * time.Second
	}
	return 0
}

// StreamerReward is the per-streamer channel point reward of a campaign config
type StreamerReward struct {
	ID         uuid.UUID `db:"id"`
	ConfigID   uuid.UUID `db:"config_id"`
	StreamerID uuid.UUID `db:"streamer_id"`
	IsEnabled  bool      `db:"is_enabled"`
	RewardLink
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
