package infrastructure

import (
	"fmt"

	"tumulte/domain/events"
)

// Inbound subjects consumed by the engine
const (
	SubjectDiceRolled        = "vtt.dice.rolled"
	SubjectRedemptionAdded   = "twitch.redemption.added"
	SubjectRedemptionUpdated = "twitch.redemption.refunded"
)

// Command subjects published by the campaign backend
const (
	SubjectTriggerManual     = "gamification.trigger.manual"
	SubjectInstanceCancel    = "gamification.instance.cancel"
	SubjectRewardEnabled     = "campaign.gamification.enabled"
	SubjectRewardDisabled    = "campaign.gamification.disabled"
	SubjectRewardCostUpdated = "campaign.gamification.cost_updated"
)

// IngressSubjects returns every subject the engine consumes
func IngressSubjects() []string {
	return []string{
		SubjectDiceRolled,
		SubjectRedemptionAdded,
		SubjectRedemptionUpdated,
		SubjectTriggerManual,
		SubjectInstanceCancel,
		SubjectRewardEnabled,
		SubjectRewardDisabled,
		SubjectRewardCostUpdated,
	}
}

var eventSubjects = map[events.EventType]string{
	events.EventTypeInstanceCreated:    "gamification.instance.created",
	events.EventTypeInstanceProgress:   "gamification.instance.progress",
	events.EventTypeInstanceArmed:      "gamification.instance.armed",
	events.EventTypeInstanceCompleted:  "gamification.instance.completed",
	events.EventTypeInstanceExpired:    "gamification.instance.expired",
	events.EventTypeInstanceCancelled:  "gamification.instance.cancelled",
	events.EventTypeContributionRefund: "gamification.contribution.refunded",
	events.EventTypeRewardOrphaned:     "gamification.reward.orphaned",
	events.EventTypeRewardDeleted:      "gamification.reward.deleted",
	events.EventTypePreFlightCompleted: "gamification.preflight.completed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct {
	subjectEvents map[string]events.EventType
}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	reverse := make(map[string]events.EventType, len(eventSubjects))
	for eventType, subject := range eventSubjects {
		reverse[subject] = eventType
	}
	return &EventSubjectMapper{subjectEvents: reverse}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("gamification.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	if eventType, ok := m.subjectEvents[subject]; ok {
		return eventType
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects the engine publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(eventSubjects)+1)
	for _, subject := range eventSubjects {
		subjects = append(subjects, subject)
	}
	return append(subjects, "gamification.unknown.>")
}
