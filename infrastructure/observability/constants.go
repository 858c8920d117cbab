package observability

// Metric name prefixes
const (
	MetricPrefix = "tumulte"
)

// Metric names
const (
	// Gamification metrics
	TriggersEvaluatedTotal  = MetricPrefix + ".gamification.triggers_evaluated_total"
	ContributionsTotal      = MetricPrefix + ".gamification.contributions_total"
	ActionExecutionsTotal   = MetricPrefix + ".gamification.action_executions_total"
	ActionExecutionDuration = MetricPrefix + ".gamification.action_execution_duration"
	InstancesExpiredTotal   = MetricPrefix + ".gamification.instances_expired_total"

	// Twitch reward metrics
	RewardsOrphanedTotal = MetricPrefix + ".rewards.orphaned_total"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelTriggerType = "trigger_type"
	LabelActionType  = "action_type"
	LabelOutcome     = "outcome"
	LabelSubject     = "subject"
	LabelEventType   = "event_type"
)

// Outcome values
const (
	OutcomeFired     = "fired"
	OutcomeSkipped   = "skipped"
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
)
