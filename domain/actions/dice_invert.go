package actions

import (
	"context"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// DiceInvertAction turns the triggering roll into its mirror result (20 becomes 1 on a d20)
type DiceInvertAction struct {
	foundryHandler
}

func NewDiceInvertAction() *DiceInvertAction {
	return &DiceInvertAction{}
}

func (a *DiceInvertAction) Type() entities.ActionType {
	return entities.ActionTypeDiceInvert
}

func (a *DiceInvertAction) Requires() []Dependency {
	return []Dependency{DependencyVTTConnection, DependencyTwitchChat}
}

// InvertResult mirrors a result on a die with the given number of faces
func InvertResult(result, sides int) int {
	return sides + 1 - result
}

func (a *DiceInvertAction) Execute(ctx context.Context, cfg entities.ActionConfig, instance *entities.GamificationInstance, connectionID string) entities.ResultData {
	config, ok := cfg.(*entities.DiceInvertActionConfig)
	if !ok || config == nil || config.DiceInvert == nil {
		return entities.FailedResult("dice_invert action: missing diceInvert in config")
	}

	roll := rollOf(instance)
	if roll == nil {
		return entities.FailedResult("dice_invert action: instance has no triggering dice roll")
	}
	sides := entities.DiceSides(roll.DiceType)
	if sides <= 0 {
		return entities.FailedResult("dice_invert action: unknown dice type " + roll.DiceType)
	}

	svc, failed := a.service(a.Type())
	if failed != nil {
		return *failed
	}

	inverted := InvertResult(roll.Result, sides)
	actionResult := map[string]any{
		"originalResult": roll.Result,
		"invertedResult": inverted,
		"characterName":  roll.CharacterName,
		"diceType":       roll.DiceType,
	}

	res := svc.InvertLastRoll(ctx, connectionID, interfaces.InvertRollRequest{
		RollID:           roll.RollID,
		CharacterID:      roll.CharacterID,
		OriginalResult:   roll.Result,
		InvertedResult:   inverted,
		TrollMessage:     config.DiceInvert.TrollMessage,
		KeepOriginalRoll: config.DiceInvert.KeepOriginalRoll,
	})
	if !res.Success {
		return commandResult(res, "", actionResult)
	}

	if config.DiceInvert.AnnounceInChat && config.DiceInvert.TrollMessage != "" {
		if announce := sendAnnouncement(ctx, svc, connectionID, config.DiceInvert.TrollMessage); !announce.Success {
			log.WithFields(log.Fields{
				"connection_id": connectionID,
				"error":         announce.Error,
			}).Warn("Failed to announce dice inversion in VTT chat")
		}
	}

	return commandResult(res, "Roll inverted", actionResult)
}
