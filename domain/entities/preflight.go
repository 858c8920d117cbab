package entities

import (
	"time"

	"github.com/google/uuid"
)

// CheckStatus is the outcome of a single pre-flight check
type CheckStatus string

const (
	CheckStatusPass CheckStatus = "pass"
	CheckStatusFail CheckStatus = "fail"
)

// PreFlightMode selects which checks run
type PreFlightMode string

const (
	// PreFlightModeLight runs only infrastructure checks
	PreFlightModeLight PreFlightMode = "light"
	// PreFlightModeFull runs every applicable check
	PreFlightModeFull PreFlightMode = "full"
)

// CheckResult is the report line of one pre-flight check
type CheckResult struct {
	Name        string         `json:"name"`
	Status      CheckStatus    `json:"status"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details,omitempty"`
	Remediation string         `json:"remediation,omitempty"`
	DurationMs  int64          `json:"durationMs"`
	Warning     bool           `json:"warning,omitempty"`
}

// Passed returns true if the check passed
func (r CheckResult) Passed() bool {
	return r.Status == CheckStatusPass
}

// PreFlightReport is an append-only snapshot of a pre-flight run
type PreFlightReport struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	CampaignID  uuid.UUID     `db:"campaign_id" json:"campaignId"`
	EventType   string        `db:"event_type" json:"eventType"`
	Healthy     bool          `db:"healthy" json:"healthy"`
	HasWarnings bool          `db:"has_warnings" json:"hasWarnings"`
	Checks      []CheckResult `db:"checks" json:"checks"`
	Mode        PreFlightMode `db:"mode" json:"mode"`
	DurationMs  int64         `db:"duration_ms" json:"durationMs"`
	TriggeredBy string        `db:"triggered_by" json:"triggeredBy"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
}
