package interfaces

import (
	"context"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/events"

	"github.com/google/uuid"
)

// GamificationEventRepository defines data access for event definitions
type GamificationEventRepository interface {
	// GetByID retrieves an event definition, nil if not found
	GetByID(ctx context.Context, id uuid.UUID) (*entities.GamificationEvent, error)

	// GetBySlug retrieves an event definition by its unique slug
	GetBySlug(ctx context.Context, slug string) (*entities.GamificationEvent, error)

	// GetAll returns every event definition
	GetAll(ctx context.Context) ([]*entities.GamificationEvent, error)

	// Create stores a new event definition
	Create(ctx context.Context, event *entities.GamificationEvent) error
}

// CampaignGamificationConfigRepository defines data access for campaign overrides
type CampaignGamificationConfigRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.CampaignGamificationConfig, error)
	GetByCampaignAndEvent(ctx context.Context, campaignID, eventID uuid.UUID) (*entities.CampaignGamificationConfig, error)

	// GetEnabledByCampaign returns the enabled configs of a campaign
	GetEnabledByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.CampaignGamificationConfig, error)

	// GetByTwitchRewardID resolves a redemption's reward back to its config
	GetByTwitchRewardID(ctx context.Context, rewardID string) (*entities.CampaignGamificationConfig, error)

	// GetByRewardStatus returns every config whose reward is in the given status
	GetByRewardStatus(ctx context.Context, status entities.RewardStatus) ([]*entities.CampaignGamificationConfig, error)

	Create(ctx context.Context, config *entities.CampaignGamificationConfig) error
	Update(ctx context.Context, config *entities.CampaignGamificationConfig) error
}

// StreamerRewardRepository defines data access for per-streamer rewards
type StreamerRewardRepository interface {
	GetByConfig(ctx context.Context, configID uuid.UUID) ([]*entities.StreamerReward, error)
	GetByTwitchRewardID(ctx context.Context, rewardID string) (*entities.StreamerReward, error)
	GetByRewardStatus(ctx context.Context, status entities.RewardStatus) ([]*entities.StreamerReward, error)
	GetActiveByStreamer(ctx context.Context, streamerID uuid.UUID) ([]*entities.StreamerReward, error)
	Create(ctx context.Context, reward *entities.StreamerReward) error
	Update(ctx context.Context, reward *entities.StreamerReward) error
}

// CampaignRepository defines read access to campaigns and their members
type CampaignRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Campaign, error)

	// GetMemberStreamers returns the active streamers of a campaign, owner first
	GetMemberStreamers(ctx context.Context, campaignID uuid.UUID) ([]*entities.Streamer, error)
}

// StreamerRepository defines read access to streamers
type StreamerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Streamer, error)
	GetByTwitchUserID(ctx context.Context, twitchUserID string) (*entities.Streamer, error)
	GetActive(ctx context.Context) ([]*entities.Streamer, error)
}

// GamificationInstanceRepository defines data access for live instances.
// Status changes go through the conditional methods so concurrent callers
// cannot apply the same transition twice.
type GamificationInstanceRepository interface {
	Create(ctx context.Context, instance *entities.GamificationInstance) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.GamificationInstance, error)

	// GetByIDForUpdate retrieves an instance and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.GamificationInstance, error)

	// GetOpenByKey returns the active or armed instance occupying a key, nil if none
	GetOpenByKey(ctx context.Context, key entities.InstanceKey) (*entities.GamificationInstance, error)

	// GetOpenByCampaign returns every active or armed instance of a campaign
	GetOpenByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.GamificationInstance, error)

	// GetLatestCooldownEnd returns the furthest cooldown end recorded for a key, nil if none
	GetLatestCooldownEnd(ctx context.Context, key entities.InstanceKey) (*time.Time, error)

	// GetExpirable returns active or armed instances whose deadline is before now
	GetExpirable(ctx context.Context, now time.Time) ([]*entities.GamificationInstance, error)

	// GetCampaignsWithArmed returns the campaigns holding an armed instance whose action has not run
	GetCampaignsWithArmed(ctx context.Context) ([]uuid.UUID, error)

	// UpdateProgress stores the recomputed progress of an open instance
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error

	// TransitionStatus moves an instance to status `to` only if its current status is in `from`
	TransitionStatus(ctx context.Context, id uuid.UUID, from []entities.InstanceStatus, to entities.InstanceStatus, at time.Time) (bool, error)

	// ClaimForExecution moves an armed, pending instance to completed. Only one caller can win.
	ClaimForExecution(ctx context.Context, id uuid.UUID, completedAt time.Time, cooldownEndsAt *time.Time) (bool, error)

	// RecordExecution stores the outcome of the action of a claimed instance
	RecordExecution(ctx context.Context, id uuid.UUID, status entities.ExecutionStatus, executedAt time.Time, result *entities.ResultData) error
}

// GamificationContributionRepository defines data access for contributions
type GamificationContributionRepository interface {
	// Create stores a contribution; it returns false without error when the
	// redemption id was already recorded
	Create(ctx context.Context, contribution *entities.GamificationContribution) (bool, error)

	GetByRedemptionID(ctx context.Context, redemptionID string) (*entities.GamificationContribution, error)

	// GetByInstance returns the contributions of an instance in arrival order
	GetByInstance(ctx context.Context, instanceID uuid.UUID) ([]*entities.GamificationContribution, error)

	MarkRefunded(ctx context.Context, id uuid.UUID, refundedAt time.Time) error
}

// PreFlightReportRepository stores pre-flight snapshots
type PreFlightReportRepository interface {
	Create(ctx context.Context, report *entities.PreFlightReport) error
	GetLatestByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*entities.PreFlightReport, error)
}

// EventSubSubscriptionRepository defines data access for EventSub subscriptions
type EventSubSubscriptionRepository interface {
	GetByStreamer(ctx context.Context, streamerID uuid.UUID) ([]*entities.EventSubSubscription, error)
	GetByStatus(ctx context.Context, status entities.SubscriptionStatus) ([]*entities.EventSubSubscription, error)
	Create(ctx context.Context, sub *entities.EventSubSubscription) error
	Update(ctx context.Context, sub *entities.EventSubSubscription) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CriticalityRuleRepository reads campaign criticality rules
type CriticalityRuleRepository interface {
	GetByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.CampaignCriticalityRule, error)
}

// ItemCategoryRuleRepository reads campaign item category rules
type ItemCategoryRuleRepository interface {
	GetByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.CampaignItemCategoryRule, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}
