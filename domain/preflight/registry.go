package preflight

import (
	"sort"

	"tumulte/domain/entities"

	log "github.com/sirupsen/logrus"
)

// Registry holds the pre-flight checks known to the process
type Registry struct {
	checks []Check
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a check. A second check with the same name is ignored.
func (r *Registry) Register(check Check) bool {
	for _, c := range r.checks {
		if c.Name() == check.Name() {
			log.WithField("check", check.Name()).Warn("Pre-flight check already registered, ignoring")
			return false
		}
	}
	r.checks = append(r.checks, check)
	return true
}

// GetChecksFor returns the checks applying to eventType, lowest priority
// first. Light mode keeps only infrastructure checks.
func (r *Registry) GetChecksFor(eventType string, mode entities.PreFlightMode) []Check {
	var selected []Check
	for _, c := range r.checks {
		if !appliesTo(c, eventType) {
			continue
		}
		if mode == entities.PreFlightModeLight && c.Priority() > LightModeMaxPriority {
			continue
		}
		selected = append(selected, c)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Priority() < selected[j].Priority()
	})
	return selected
}

func appliesTo(c Check, eventType string) bool {
	for _, t := range c.AppliesTo() {
		if t == AllEventTypes || t == eventType {
			return true
		}
	}
	return false
}
