package actions

import (
	"context"
	"fmt"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"
)

// MonsterAction applies a stat modifier to a hostile token
type MonsterAction struct {
	foundryHandler
	kind entities.ActionType
}

// NewMonsterAction creates the handler for monster_buff or monster_debuff
func NewMonsterAction(kind entities.ActionType) *MonsterAction {
	return &MonsterAction{kind: kind}
}

func (a *MonsterAction) Type() entities.ActionType {
	return a.kind
}

func (a *MonsterAction) effect() string {
	if a.kind == entities.ActionTypeMonsterDebuff {
		return "debuff"
	}
	return "buff"
}

func (a *MonsterAction) Execute(ctx context.Context, cfg entities.ActionConfig, _ *entities.GamificationInstance, connectionID string) entities.ResultData {
	config, ok := cfg.(*entities.MonsterActionConfig)
	if !ok || config == nil || config.Monster == nil || config.Monster.Stat == "" {
		return entities.FailedResult(fmt.Sprintf("%s action: missing monster.stat in config", a.kind))
	}
	monster := config.Monster
	if monster.ActorID == "" && monster.TokenID == "" {
		return entities.FailedResult(fmt.Sprintf("%s action: monster actor or token required", a.kind))
	}

	svc, failed := a.service(a.kind)
	if failed != nil {
		return *failed
	}

	res := svc.ApplyMonsterEffect(ctx, connectionID, interfaces.MonsterEffectRequest{
		ActorID:        monster.ActorID,
		TokenID:        monster.TokenID,
		Stat:           monster.Stat,
		Effect:         a.effect(),
		Modifier:       monster.Modifier,
		DurationRounds: monster.DurationRounds,
		Message:        monster.Message,
	})

	actionResult := map[string]any{
		"stat":     monster.Stat,
		"effect":   a.effect(),
		"modifier": monster.Modifier,
	}
	if name, ok := res.Data["monsterName"].(string); ok && name != "" {
		actionResult["monsterName"] = name
	}
	return commandResult(res, fmt.Sprintf("Monster %s applied", a.effect()), actionResult)
}
