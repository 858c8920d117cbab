package actions

import (
	"context"
	"fmt"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"
)

const defaultSpeaker = "Tumulte"

// foundryHandler holds the VTT command service shared by VTT-backed handlers
type foundryHandler struct {
	foundry interfaces.FoundryCommandService
}

func (h *foundryHandler) SetFoundryService(svc interfaces.FoundryCommandService) {
	h.foundry = svc
}

func (h *foundryHandler) Requires() []Dependency {
	return []Dependency{DependencyVTTConnection}
}

// service returns the wired service or the failure to report when it is missing
func (h *foundryHandler) service(actionType entities.ActionType) (interfaces.FoundryCommandService, *entities.ResultData) {
	if h.foundry == nil {
		failed := entities.FailedResult(fmt.Sprintf("%s action: Foundry command service not available", actionType))
		return nil, &failed
	}
	return h.foundry, nil
}

// commandResult converts a VTT command outcome into action result data
func commandResult(res interfaces.CommandResult, message string, actionResult map[string]any) entities.ResultData {
	if !res.Success {
		errMsg := res.Error
		if errMsg == "" {
			errMsg = "VTT command failed"
		}
		return entities.ResultData{Success: false, Error: errMsg, ActionResult: actionResult}
	}
	return entities.ResultData{Success: true, Message: message, ActionResult: actionResult}
}

// rollOf returns the dice roll that triggered the instance, if any
func rollOf(instance *entities.GamificationInstance) *entities.DiceRollTriggerData {
	if instance == nil || instance.TriggerData == nil {
		return nil
	}
	return instance.TriggerData.DiceRoll
}

// targetActor picks the configured actor or the character behind the triggering roll
func targetActor(configured string, instance *entities.GamificationInstance) string {
	if configured != "" {
		return configured
	}
	if roll := rollOf(instance); roll != nil {
		return roll.CharacterID
	}
	return ""
}

// sendAnnouncement posts a message in the VTT chat as Tumulte
func sendAnnouncement(ctx context.Context, svc interfaces.FoundryCommandService, connectionID, content string) interfaces.CommandResult {
	return svc.SendChatMessage(ctx, connectionID, content, defaultSpeaker)
}
