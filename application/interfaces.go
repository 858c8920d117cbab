package application

import (
	"context"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/services"

	"github.com/google/uuid"
)

// DiceRollProcessor runs a VTT roll through the campaign's dice triggers
type DiceRollProcessor interface {
	HandleDiceRoll(ctx context.Context, roll *entities.DiceRoll, tctx entities.TriggerContext) ([]*entities.GamificationInstance, error)
}

// RedemptionProcessor applies channel point redemptions and refunds
type RedemptionProcessor interface {
	HandleRedemption(ctx context.Context, redemption entities.ChannelPointRedemption) (*services.ContributionOutcome, error)
	HandleRefund(ctx context.Context, redemptionID string) error
}

// TriggerProcessor fires manual and custom triggers by event slug
type TriggerProcessor interface {
	HandleTriggerBySlug(ctx context.Context, slug string, data any, tctx entities.TriggerContext) (*entities.GamificationInstance, error)
}

// InstanceCanceller cancels open instances
type InstanceCanceller interface {
	CancelInstance(ctx context.Context, instanceID, campaignID uuid.UUID, reason string) error
}

// RewardController keeps Twitch rewards in line with campaign configs
type RewardController interface {
	Enable(ctx context.Context, configID uuid.UUID) (*entities.CampaignGamificationConfig, error)
	Disable(ctx context.Context, configID uuid.UUID) (*entities.CampaignGamificationConfig, error)
	UpdateCost(ctx context.Context, configID uuid.UUID, cost int) (*entities.CampaignGamificationConfig, error)
}

// ArmedExecutor executes the armed instances of a campaign
type ArmedExecutor interface {
	ExecuteArmedInstances(ctx context.Context, campaignID uuid.UUID) (int, error)
}

// InstanceExpirer expires the instances past their deadline
type InstanceExpirer interface {
	CheckAndExpireInstances(ctx context.Context) (int, error)
}

// OrphanFinder lists orphaned rewards whose retry is due
type OrphanFinder interface {
	FindOrphansDueForRetry(ctx context.Context, now time.Time) ([]*entities.CampaignGamificationConfig, error)
	FindStreamerRewardsDueForRetry(ctx context.Context, now time.Time) ([]*entities.StreamerReward, error)
}

// OrphanRetrier retries the remote deletion of orphaned rewards
type OrphanRetrier interface {
	RetryOrphanDeletion(ctx context.Context, config *entities.CampaignGamificationConfig) (bool, error)
	RetryStreamerRewardDeletion(ctx context.Context, reward *entities.StreamerReward) (bool, error)
}

// SubscriptionReconciler aligns EventSub subscriptions of every streamer
type SubscriptionReconciler interface {
	ReconcileAll(ctx context.Context) (*services.ReconcileResult, error)
}

// PreFlightRunner runs pre-flight checks for a campaign
type PreFlightRunner interface {
	Run(ctx context.Context, campaignID uuid.UUID, eventType string, mode entities.PreFlightMode, triggeredBy string) (*entities.PreFlightReport, error)
}

// SubjectPublisher publishes raw messages on a NATS subject
type SubjectPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}
