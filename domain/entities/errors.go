package entities

import "errors"

var (
	// ErrInstanceNotFound is returned when an instance id does not exist
	ErrInstanceNotFound = errors.New("gamification instance not found")
	// ErrInstanceTerminal is returned when mutating a completed, expired or cancelled instance
	ErrInstanceTerminal = errors.New("gamification instance is in a terminal state")
	// ErrCampaignMismatch is returned when an entity does not belong to the given campaign
	ErrCampaignMismatch = errors.New("entity does not belong to campaign")
	// ErrConfigNotFound is returned when a campaign gamification config does not exist
	ErrConfigNotFound = errors.New("campaign gamification config not found")
	// ErrEventNotFound is returned when an event definition does not exist
	ErrEventNotFound = errors.New("gamification event not found")
	// ErrCampaignNotFound is returned when a campaign does not exist
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrDuplicateOpenInstance is returned by storage when a key already has an open instance
	ErrDuplicateOpenInstance = errors.New("an open instance already exists for this key")
	// ErrRemoteNotFound is returned by remote clients when the resource no longer exists
	ErrRemoteNotFound = errors.New("remote resource not found")
)
