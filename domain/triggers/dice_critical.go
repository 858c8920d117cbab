package triggers

import (
	"strings"

	"tumulte/domain/entities"
)

// DiceCriticalTrigger fires on rolls at or beyond the configured critical thresholds.
// A success branch without threshold uses the die's highest face, a failure
// branch uses 1. Rolls already flagged critical, by the VTT or a campaign
// criticality rule, match the branch of their critical type.
type DiceCriticalTrigger struct{}

func NewDiceCriticalTrigger() *DiceCriticalTrigger {
	return &DiceCriticalTrigger{}
}

func (t *DiceCriticalTrigger) Type() entities.TriggerType {
	return entities.TriggerTypeDiceCritical
}

func (t *DiceCriticalTrigger) Evaluate(cfg entities.TriggerConfig, data any) entities.TriggerEvaluationResult {
	config, ok := cfg.(*entities.DiceCriticalTriggerConfig)
	if !ok || config == nil {
		return entities.NotTriggered("dice_critical trigger requires a dice critical config")
	}

	roll := asDiceRoll(data)
	if roll == nil {
		return entities.NotTriggered("dice_critical trigger requires a dice roll")
	}

	if branchMatches(config.CriticalSuccess, roll) &&
		(flagged(roll, entities.CriticalSuccess) || roll.Result >= successThreshold(config.CriticalSuccess, roll)) {
		return triggered(roll, entities.CriticalSuccess)
	}
	if branchMatches(config.CriticalFailure, roll) &&
		(flagged(roll, entities.CriticalFailure) || roll.Result <= failureThreshold(config.CriticalFailure)) {
		return triggered(roll, entities.CriticalFailure)
	}

	return entities.NotTriggered("roll %d on %s is not critical", roll.Result, roll.DiceType)
}

func asDiceRoll(data any) *entities.DiceRoll {
	switch v := data.(type) {
	case *entities.DiceRoll:
		return v
	case entities.DiceRoll:
		return &v
	}
	return nil
}

func branchMatches(branch *entities.CriticalBranch, roll *entities.DiceRoll) bool {
	if branch == nil || !branch.Enabled {
		return false
	}
	if branch.DiceType == "" {
		return true
	}
	return strings.EqualFold(branch.DiceType, roll.DiceType)
}

func successThreshold(branch *entities.CriticalBranch, roll *entities.DiceRoll) int {
	if branch.Threshold > 0 {
		return branch.Threshold
	}
	if sides := roll.Sides(); sides > 0 {
		return sides
	}
	// unknown die: only a flagged roll can match
	return roll.Result + 1
}

func flagged(roll *entities.DiceRoll, critical entities.CriticalType) bool {
	return roll.IsCritical && roll.CriticalType == critical
}

func failureThreshold(branch *entities.CriticalBranch) int {
	if branch.Threshold > 0 {
		return branch.Threshold
	}
	return 1
}

func triggered(roll *entities.DiceRoll, critical entities.CriticalType) entities.TriggerEvaluationResult {
	return entities.TriggerEvaluationResult{
		ShouldTrigger: true,
		TriggerData: &entities.TriggerData{
			DiceRoll: &entities.DiceRollTriggerData{
				RollID:        roll.ID,
				CharacterID:   roll.CharacterID,
				CharacterName: roll.CharacterName,
				Formula:       roll.Formula,
				DiceType:      roll.DiceType,
				Result:        roll.Result,
				CriticalType:  critical,
			},
		},
	}
}
