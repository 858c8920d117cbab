package entities

import (
	"time"

	"github.com/google/uuid"
)

// InstanceStatus represents the lifecycle state of a gamification instance
type InstanceStatus string

const (
	InstanceStatusActive    InstanceStatus = "active"
	InstanceStatusArmed     InstanceStatus = "armed"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusExpired   InstanceStatus = "expired"
	InstanceStatusCancelled InstanceStatus = "cancelled"
)

// IsTerminal returns true for states an instance never leaves
func (s InstanceStatus) IsTerminal() bool {
	switch s {
	case InstanceStatusCompleted, InstanceStatusExpired, InstanceStatusCancelled:
		return true
	}
	return false
}

// ExecutionStatus tracks the action execution of an instance
type ExecutionStatus string

const (
	ExecutionStatusPending  ExecutionStatus = "pending"
	ExecutionStatusExecuted ExecutionStatus = "executed"
	ExecutionStatusFailed   ExecutionStatus = "failed"
)

// InstanceKey identifies the slot an instance occupies. StreamerID is nil for group events.
type InstanceKey struct {
	EventID    uuid.UUID
	CampaignID uuid.UUID
	StreamerID *uuid.UUID
}

// GamificationInstance is a live occurrence of an event for a campaign
type GamificationInstance struct {
	ID              uuid.UUID             `db:"id"`
	CampaignID      uuid.UUID             `db:"campaign_id"`
	EventID         uuid.UUID             `db:"event_id"`
	StreamerID      *uuid.UUID            `db:"streamer_id"`
	Type            GamificationEventType `db:"type"`
	Status          InstanceStatus        `db:"status"`
	TriggerData     *TriggerData          `db:"trigger_data"`
	ObjectiveTarget int                   `db:"objective_target"`
	CurrentProgress int                   `db:"current_progress"`
	StartsAt        time.Time             `db:"starts_at"`
	ExpiresAt       time.Time             `db:"expires_at"`
	ArmedAt         *time.Time            `db:"armed_at"`
	CompletedAt     *time.Time            `db:"completed_at"`
	CooldownEndsAt  *time.Time            `db:"cooldown_ends_at"`
	ExecutionStatus ExecutionStatus       `db:"execution_status"`
	ExecutedAt      *time.Time            `db:"executed_at"`
	ResultData      *ResultData           `db:"result_data"`
	CreatedAt       time.Time             `db:"created_at"`
	UpdatedAt       time.Time             `db:"updated_at"`
}

// Key returns the slot key of the instance
func (i *GamificationInstance) Key() InstanceKey {
	return InstanceKey{EventID: i.EventID, CampaignID: i.CampaignID, StreamerID: i.StreamerID}
}

// IsExpiredAt returns true if the instance deadline has passed
func (i *GamificationInstance) IsExpiredAt(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// IsOpen returns true if the instance still accepts contributions or execution
func (i *GamificationInstance) IsOpen() bool {
	return i.Status == InstanceStatusActive || i.Status == InstanceStatusArmed
}

// RemainingProgress returns how many contributions are still needed
func (i *GamificationInstance) RemainingProgress() int {
	remaining := i.ObjectiveTarget - i.CurrentProgress
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GamificationContribution is one viewer redemption applied to an instance
type GamificationContribution struct {
	ID                 uuid.UUID  `db:"id"`
	InstanceID         uuid.UUID  `db:"instance_id"`
	StreamerID         *uuid.UUID `db:"streamer_id"`
	TwitchUserID       string     `db:"twitch_user_id"`
	TwitchUsername     string     `db:"twitch_username"`
	Amount             int        `db:"amount"`
	TwitchRedemptionID string     `db:"twitch_redemption_id"`
	Refunded           bool       `db:"refunded"`
	RefundedAt         *time.Time `db:"refunded_at"`
	CreatedAt          time.Time  `db:"created_at"`
}

// ResultData is the outcome of an action execution
type ResultData struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message,omitempty"`
	Error        string         `json:"error,omitempty"`
	ActionResult map[string]any `json:"actionResult,omitempty"`
}

// FailedResult builds an unsuccessful result
func FailedResult(err string) ResultData {
	return ResultData{Success: false, Error: err}
}
