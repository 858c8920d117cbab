package interfaces

import (
	"context"
	"time"

	"tumulte/domain/entities"

	"github.com/google/uuid"
)

// CommandResult is the outcome of a command sent to the VTT module
type CommandResult struct {
	Success bool
	Error   string
	Data    map[string]any
}

// InvertRollRequest asks the VTT module to replace a roll result by its inverse
type InvertRollRequest struct {
	RollID           string
	CharacterID      string
	OriginalResult   int
	InvertedResult   int
	TrollMessage     string
	KeepOriginalRoll bool
}

// SpellEffectRequest describes an effect applied to a character's spell
type SpellEffectRequest struct {
	ActorID        string
	SpellID        string
	SpellName      string
	Effect         string // buff, debuff or disable
	Modifier       int
	DurationRounds int
	Message        string
}

// MonsterEffectRequest describes a modifier applied to a hostile token
type MonsterEffectRequest struct {
	ActorID        string
	TokenID        string
	Stat           string
	Effect         string // buff or debuff
	Modifier       int
	DurationRounds int
	Message        string
}

// FoundryCommandService sends commands to a live Foundry VTT session.
// Remote failures are reported in the CommandResult, never as a panic.
type FoundryCommandService interface {
	SendChatMessage(ctx context.Context, connectionID, content, speaker string) CommandResult
	ModifyActor(ctx context.Context, connectionID, actorID string, updates map[string]any) CommandResult
	InvertLastRoll(ctx context.Context, connectionID string, req InvertRollRequest) CommandResult
	ApplySpellEffect(ctx context.Context, connectionID string, req SpellEffectRequest) CommandResult
	ApplyMonsterEffect(ctx context.Context, connectionID string, req MonsterEffectRequest) CommandResult
	ExecuteCustom(ctx context.Context, connectionID, command string, params map[string]any) CommandResult

	// IsConnected returns true if a VTT session is attached to the connection id
	IsConnected(connectionID string) bool
}

// CustomRewardRequest holds the fields of a channel point reward
type CustomRewardRequest struct {
	Title                  string
	Prompt                 string
	Cost                   int
	IsEnabled              bool
	BackgroundColor        string
	ShouldSkipRequestQueue bool
	GlobalCooldownSeconds  int
	IsUserInputRequired    bool
}

// CustomReward is a reward as returned by Twitch
type CustomReward struct {
	ID        string
	Title     string
	Cost      int
	IsEnabled bool
	IsPaused  bool
}

// RewardClient manages Twitch channel point rewards and their redemptions
type RewardClient interface {
	CreateCustomReward(ctx context.Context, broadcasterID string, req CustomRewardRequest) (*CustomReward, error)
	UpdateCustomReward(ctx context.Context, broadcasterID, rewardID string, cost int) error
	DeleteCustomReward(ctx context.Context, broadcasterID, rewardID string) error

	// UpdateRedemptionStatus fulfills or cancels a redemption; CANCELED refunds the viewer
	UpdateRedemptionStatus(ctx context.Context, broadcasterID, rewardID, redemptionID, status string) error
}

// EventSubClient manages Twitch EventSub subscriptions
type EventSubClient interface {
	CreateEventSubSubscription(ctx context.Context, subType, broadcasterID string) (*entities.RemoteSubscription, error)
	ListEventSubSubscriptions(ctx context.Context, broadcasterID string) ([]entities.RemoteSubscription, error)
	DeleteEventSubSubscription(ctx context.Context, subscriptionID string) error
}

// TokenInfo is the result of validating a broadcaster token
type TokenInfo struct {
	UserID    string
	Login     string
	Scopes    []string
	ExpiresIn time.Duration
}

// TokenValidator checks whether a broadcaster's user token is still usable
type TokenValidator interface {
	ValidateToken(ctx context.Context, broadcasterID string) (*TokenInfo, error)
}

// ViewerCounter returns the live viewer count of a broadcaster, 0 when offline
type ViewerCounter interface {
	GetViewerCount(ctx context.Context, broadcasterID string) (int, error)
}

// TwitchChat posts messages in a broadcaster's chat
type TwitchChat interface {
	SendChatMessage(ctx context.Context, broadcasterID, message string) error
}

// ChatNotifier announces gamification outcomes in the Twitch chats of a campaign.
// A nil streamerID targets every member streamer.
type ChatNotifier interface {
	NotifyCampaign(ctx context.Context, campaignID uuid.UUID, streamerID *uuid.UUID, message string) error
}

// ObjectiveCalculator computes progress and the objective of an instance
type ObjectiveCalculator interface {
	Calculate(
		event *entities.GamificationEvent,
		config *entities.CampaignGamificationConfig,
		contributions []*entities.GamificationContribution,
		streamerCtx entities.StreamerContext,
	) (entities.ObjectiveProgress, error)
}

// StreamerContextProvider resolves the audience used to size a new objective
type StreamerContextProvider interface {
	GetStreamerContext(ctx context.Context, campaignID uuid.UUID, streamerID *uuid.UUID) (entities.StreamerContext, error)
}

// CooldownCache mirrors instance cooldowns in a fast store. Implementations
// may lose entries; the repository stays the source of truth.
type CooldownCache interface {
	SetCooldown(ctx context.Context, key entities.InstanceKey, until time.Time) error
	IsOnCooldown(ctx context.Context, key entities.InstanceKey) (bool, error)
}

// MetricsRecorder receives gamification measurements
type MetricsRecorder interface {
	RecordTriggerEvaluated(triggerType string, fired bool)
	RecordContribution(accepted bool)
	RecordActionExecution(actionType string, success bool, duration time.Duration)
	RecordInstancesExpired(count int)
	RecordRewardOrphaned()
}
