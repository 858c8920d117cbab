package services

import (
	"tumulte/domain/entities"
	"tumulte/domain/interfaces"
	"tumulte/domain/triggers"

	log "github.com/sirupsen/logrus"
)

// TriggerEvaluator dispatches trigger evaluation to the registered handler
type TriggerEvaluator struct {
	registry *triggers.Registry
	metrics  interfaces.MetricsRecorder
}

// NewTriggerEvaluator creates a trigger evaluator backed by registry
func NewTriggerEvaluator(registry *triggers.Registry, metrics interfaces.MetricsRecorder) *TriggerEvaluator {
	return &TriggerEvaluator{
		registry: registry,
		metrics:  metricsOrNoop(metrics),
	}
}

// Evaluate asks the handler of the event's trigger type whether data fires it.
// An unregistered type yields a negative result, never an error.
func (e *TriggerEvaluator) Evaluate(event *entities.GamificationEvent, data any) entities.TriggerEvaluationResult {
	handler, ok := e.registry.Get(event.TriggerType)
	if !ok {
		log.WithFields(log.Fields{
			"event_slug":   event.Slug,
			"trigger_type": event.TriggerType,
		}).Warn("No handler registered for trigger type")
		e.metrics.RecordTriggerEvaluated(string(event.TriggerType), false)
		return entities.NotTriggered("unknown trigger type: %s", event.TriggerType)
	}

	result := handler.Evaluate(event.TriggerConfig, data)
	e.metrics.RecordTriggerEvaluated(string(event.TriggerType), result.ShouldTrigger)

	log.WithFields(log.Fields{
		"event_slug":     event.Slug,
		"trigger_type":   event.TriggerType,
		"should_trigger": result.ShouldTrigger,
		"reason":         result.Reason,
	}).Debug("Evaluated trigger")

	return result
}

// IsSupportedTriggerType returns true if a handler is registered for t
func (e *TriggerEvaluator) IsSupportedTriggerType(t entities.TriggerType) bool {
	return e.registry.Has(t)
}
