package events

import (
	"github.com/google/uuid"
)

// EventType represents different types of domain events
type EventType string

const (
	EventTypeInstanceCreated    EventType = "instance_created"
	EventTypeInstanceProgress   EventType = "instance_progress"
	EventTypeInstanceArmed      EventType = "instance_armed"
	EventTypeInstanceCompleted  EventType = "instance_completed"
	EventTypeInstanceExpired    EventType = "instance_expired"
	EventTypeInstanceCancelled  EventType = "instance_cancelled"
	EventTypeContributionRefund EventType = "contribution_refunded"
	EventTypeRewardOrphaned     EventType = "reward_orphaned"
	EventTypeRewardDeleted      EventType = "reward_deleted"
	EventTypePreFlightCompleted EventType = "preflight_completed"
)

// Event is the base interface for all domain events
type Event interface {
	Type() EventType
}

// InstanceCreatedEvent is published when a new instance opens
type InstanceCreatedEvent struct {
	InstanceID uuid.UUID  `json:"instanceId"`
	CampaignID uuid.UUID  `json:"campaignId"`
	EventID    uuid.UUID  `json:"eventId"`
	StreamerID *uuid.UUID `json:"streamerId,omitempty"`
	Objective  int        `json:"objective"`
}

func (e InstanceCreatedEvent) Type() EventType {
	return EventTypeInstanceCreated
}

// InstanceProgressEvent is published after every accepted contribution
type InstanceProgressEvent struct {
	InstanceID uuid.UUID `json:"instanceId"`
	CampaignID uuid.UUID `json:"campaignId"`
	Progress   int       `json:"progress"`
	Objective  int       `json:"objective"`
}

func (e InstanceProgressEvent) Type() EventType {
	return EventTypeInstanceProgress
}

// InstanceArmedEvent is published when an instance meets its objective
type InstanceArmedEvent struct {
	InstanceID uuid.UUID `json:"instanceId"`
	CampaignID uuid.UUID `json:"campaignId"`
}

func (e InstanceArmedEvent) Type() EventType {
	return EventTypeInstanceArmed
}

// InstanceCompletedEvent is published once the action of an instance ran
type InstanceCompletedEvent struct {
	InstanceID uuid.UUID `json:"instanceId"`
	CampaignID uuid.UUID `json:"campaignId"`
	ActionType string    `json:"actionType"`
	Success    bool      `json:"success"`
}

func (e InstanceCompletedEvent) Type() EventType {
	return EventTypeInstanceCompleted
}

// InstanceExpiredEvent is published by the expiry sweep
type InstanceExpiredEvent struct {
	InstanceID uuid.UUID `json:"instanceId"`
	CampaignID uuid.UUID `json:"campaignId"`
}

func (e InstanceExpiredEvent) Type() EventType {
	return EventTypeInstanceExpired
}

// InstanceCancelledEvent is published when an instance is cancelled
type InstanceCancelledEvent struct {
	InstanceID uuid.UUID `json:"instanceId"`
	CampaignID uuid.UUID `json:"campaignId"`
	Reason     string    `json:"reason"`
}

func (e InstanceCancelledEvent) Type() EventType {
	return EventTypeInstanceCancelled
}

// ContributionRefundedEvent is published when a redemption is refunded
type ContributionRefundedEvent struct {
	InstanceID   uuid.UUID `json:"instanceId"`
	RedemptionID string    `json:"redemptionId"`
}

func (e ContributionRefundedEvent) Type() EventType {
	return EventTypeContributionRefund
}

// RewardOrphanedEvent is published when a remote reward deletion fails
type RewardOrphanedEvent struct {
	ConfigID   uuid.UUID `json:"configId"`
	RewardID   string    `json:"rewardId"`
	RetryCount int       `json:"retryCount"`
}

func (e RewardOrphanedEvent) Type() EventType {
	return EventTypeRewardOrphaned
}

// RewardDeletedEvent is published when a remote reward is gone
type RewardDeletedEvent struct {
	ConfigID uuid.UUID `json:"configId"`
	RewardID string    `json:"rewardId"`
}

func (e RewardDeletedEvent) Type() EventType {
	return EventTypeRewardDeleted
}

// PreFlightCompletedEvent is published after a pre-flight report is stored
type PreFlightCompletedEvent struct {
	CampaignID uuid.UUID `json:"campaignId"`
	EventType  string    `json:"eventType"`
	Healthy    bool      `json:"healthy"`
}

func (e PreFlightCompletedEvent) Type() EventType {
	return EventTypePreFlightCompleted
}
