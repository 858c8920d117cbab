package entities

import (
	"time"

	"github.com/google/uuid"
)

// EventSub subscription types managed by the reconciler
const (
	EventSubRedemptionAdd    = "channel.channel_points_custom_reward_redemption.add"
	EventSubRedemptionUpdate = "channel.channel_points_custom_reward_redemption.update"
)

// SubscriptionStatus tracks the local view of an EventSub subscription
type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusEnabled  SubscriptionStatus = "enabled"
	SubscriptionStatusFailed   SubscriptionStatus = "failed"
	SubscriptionStatusRevoked  SubscriptionStatus = "revoked"
	SubscriptionStatusOrphaned SubscriptionStatus = "orphaned"
)

// EventSubSubscription is a Twitch EventSub subscription owned by a streamer
type EventSubSubscription struct {
	ID                   uuid.UUID          `db:"id"`
	StreamerID           uuid.UUID          `db:"streamer_id"`
	BroadcasterID        string             `db:"broadcaster_id"`
	Type                 string             `db:"type"`
	TwitchSubscriptionID *string            `db:"twitch_subscription_id"`
	Status               SubscriptionStatus `db:"status"`
	LastError            *string            `db:"last_error"`
	RetryCount           int                `db:"retry_count"`
	NextRetryAt          *time.Time         `db:"next_retry_at"`
	CreatedAt            time.Time          `db:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at"`
}

// IsDueForRetry returns true when an orphaned subscription may be deleted again at now
func (s *EventSubSubscription) IsDueForRetry(now time.Time) bool {
	if s.Status != SubscriptionStatusOrphaned {
		return false
	}
	return s.NextRetryAt == nil || !s.NextRetryAt.After(now)
}

// RemoteSubscription is a subscription as reported by the Twitch API
type RemoteSubscription struct {
	ID            string
	Type          string
	Status        string
	BroadcasterID string
}

// ChannelPointRedemption is a redemption notification from Twitch
type ChannelPointRedemption struct {
	RedemptionID  string    `json:"id"`
	RewardID      string    `json:"rewardId"`
	BroadcasterID string    `json:"broadcasterUserId"`
	UserID        string    `json:"userId"`
	UserLogin     string    `json:"userLogin"`
	UserName      string    `json:"userName"`
	Cost          int       `json:"cost"`
	Status        string    `json:"status"`
	RedeemedAt    time.Time `json:"redeemedAt"`
}
