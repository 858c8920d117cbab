package triggers

import "tumulte/domain/entities"

// ManualTrigger fires every time; the caller's payload is kept as custom data
type ManualTrigger struct{}

func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{}
}

func (t *ManualTrigger) Type() entities.TriggerType {
	return entities.TriggerTypeManual
}

func (t *ManualTrigger) Evaluate(_ entities.TriggerConfig, data any) entities.TriggerEvaluationResult {
	return entities.TriggerEvaluationResult{
		ShouldTrigger: true,
		TriggerData:   &entities.TriggerData{Custom: data},
	}
}
