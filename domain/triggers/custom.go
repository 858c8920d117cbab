package triggers

import "tumulte/domain/entities"

// CustomTrigger fires whenever the caller supplies a payload
type CustomTrigger struct{}

func NewCustomTrigger() *CustomTrigger {
	return &CustomTrigger{}
}

func (t *CustomTrigger) Type() entities.TriggerType {
	return entities.TriggerTypeCustom
}

func (t *CustomTrigger) Evaluate(_ entities.TriggerConfig, data any) entities.TriggerEvaluationResult {
	if data == nil {
		return entities.NotTriggered("custom trigger requires data")
	}
	return entities.TriggerEvaluationResult{
		ShouldTrigger: true,
		TriggerData:   &entities.TriggerData{Custom: data},
	}
}
