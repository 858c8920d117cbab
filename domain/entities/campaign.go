package entities

import (
	"time"

	"github.com/google/uuid"
)

// Campaign is the owner of every gamification entity
type Campaign struct {
	ID              uuid.UUID `db:"id"`
	Name            string    `db:"name"`
	OwnerStreamerID uuid.UUID `db:"owner_streamer_id"`
	// VTTConnectionID is the Foundry session bound to the campaign, empty when none
	VTTConnectionID string    `db:"vtt_connection_id"`
	CreatedAt       time.Time `db:"created_at"`
}

// Streamer is a Twitch broadcaster taking part in campaigns
type Streamer struct {
	ID           uuid.UUID `db:"id"`
	TwitchUserID string    `db:"twitch_user_id"`
	TwitchLogin  string    `db:"twitch_login"`
	DisplayName  string    `db:"display_name"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

// StreamerContext is the audience information used to size objectives
type StreamerContext struct {
	ViewerCount int
	// FixedObjective, when positive, replaces the computed objective. It is
	// set from the target captured when the instance was created.
	FixedObjective int
}

// ObjectiveProgress is the output of an objective calculation
type ObjectiveProgress struct {
	Progress     int
	Objective    int
	ObjectiveMet bool
}
