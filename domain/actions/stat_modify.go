package actions

import (
	"context"

	"tumulte/domain/entities"
)

// StatModifyAction applies a data update to an actor
type StatModifyAction struct {
	foundryHandler
}

func NewStatModifyAction() *StatModifyAction {
	return &StatModifyAction{}
}

func (a *StatModifyAction) Type() entities.ActionType {
	return entities.ActionTypeStatModify
}

func (a *StatModifyAction) Execute(ctx context.Context, cfg entities.ActionConfig, instance *entities.GamificationInstance, connectionID string) entities.ResultData {
	config, ok := cfg.(*entities.StatModifyActionConfig)
	if !ok || config == nil || config.StatModify == nil || len(config.StatModify.Updates) == 0 {
		return entities.FailedResult("stat_modify action: missing statModify.updates in config")
	}

	actorID := targetActor(config.StatModify.ActorID, instance)
	if actorID == "" {
		return entities.FailedResult("stat_modify action: no target actor")
	}

	svc, failed := a.service(a.Type())
	if failed != nil {
		return *failed
	}

	res := svc.ModifyActor(ctx, connectionID, actorID, config.StatModify.Updates)
	return commandResult(res, "Actor updated", map[string]any{
		"actorId": actorID,
		"updates": config.StatModify.Updates,
	})
}
