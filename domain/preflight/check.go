package preflight

import (
	"context"
	"time"

	"tumulte/domain/actions"
	"tumulte/domain/entities"

	"github.com/google/uuid"
)

// AllEventTypes makes a check apply to every event type
const AllEventTypes = "all"

// LightModeMaxPriority is the highest priority run in light mode. Checks at
// or below it are infrastructure checks and a failure stops the run.
const LightModeMaxPriority = 10

// CheckContext is the scope a check runs against
type CheckContext struct {
	CampaignID uuid.UUID
	// EventType is the slug of the event about to go live, or AllEventTypes
	EventType string
	Mode      entities.PreFlightMode
	Campaign  *entities.Campaign
	Streamers []*entities.Streamer
	// Requires holds the dependencies of the actions in scope. Nil means
	// they could not be resolved and every dependency is assumed.
	Requires map[actions.Dependency]bool
}

// Needs reports whether an action in scope depends on dep
func (c CheckContext) Needs(dep actions.Dependency) bool {
	return c.Requires == nil || c.Requires[dep]
}

// Check is a readiness probe run before an event goes live. Lower priorities run first.
type Check interface {
	Name() string
	Priority() int
	AppliesTo() []string
	Execute(ctx context.Context, cctx CheckContext) entities.CheckResult
}

// DependencyCheck is a check that validates one action dependency. The
// runner skips it when no action in scope needs that dependency.
type DependencyCheck interface {
	Check
	Dependency() actions.Dependency
}

func pass(name, message string) entities.CheckResult {
	return entities.CheckResult{Name: name, Status: entities.CheckStatusPass, Message: message}
}

func fail(name, message, remediation string) entities.CheckResult {
	return entities.CheckResult{
		Name:        name,
		Status:      entities.CheckStatusFail,
		Message:     message,
		Remediation: remediation,
	}
}

// timed runs check and stamps its duration on the result
func timed(ctx context.Context, check Check, cctx CheckContext) entities.CheckResult {
	start := time.Now()
	result := check.Execute(ctx, cctx)
	if result.Name == "" {
		result.Name = check.Name()
	}
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}
