package actions

import (
	"context"

	"tumulte/domain/entities"
)

const defaultCustomCommand = "custom"

// CustomAction forwards a free-form command to the VTT module
type CustomAction struct {
	foundryHandler
}

func NewCustomAction() *CustomAction {
	return &CustomAction{}
}

func (a *CustomAction) Type() entities.ActionType {
	return entities.ActionTypeCustom
}

func (a *CustomAction) Execute(ctx context.Context, cfg entities.ActionConfig, _ *entities.GamificationInstance, connectionID string) entities.ResultData {
	config, ok := cfg.(*entities.CustomActionConfig)
	if !ok || config == nil {
		return entities.FailedResult("custom action: missing config")
	}

	svc, failed := a.service(a.Type())
	if failed != nil {
		return *failed
	}

	command := config.Command
	if command == "" {
		command = defaultCustomCommand
	}

	res := svc.ExecuteCustom(ctx, connectionID, command, config.Params)
	return commandResult(res, "Custom command executed", res.Data)
}
