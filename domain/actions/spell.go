package actions

import (
	"context"
	"fmt"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"
)

var spellEffects = map[entities.ActionType]string{
	entities.ActionTypeSpellBuff:    "buff",
	entities.ActionTypeSpellDebuff:  "debuff",
	entities.ActionTypeSpellDisable: "disable",
}

// SpellAction applies a buff, debuff or disable to a character's spell
type SpellAction struct {
	foundryHandler
	kind entities.ActionType
}

// NewSpellAction creates the handler for one of the spell action types
func NewSpellAction(kind entities.ActionType) *SpellAction {
	return &SpellAction{kind: kind}
}

func (a *SpellAction) Type() entities.ActionType {
	return a.kind
}

func (a *SpellAction) Execute(ctx context.Context, cfg entities.ActionConfig, instance *entities.GamificationInstance, connectionID string) entities.ResultData {
	config, ok := cfg.(*entities.SpellActionConfig)
	if !ok || config == nil || config.Spell == nil {
		return entities.FailedResult(fmt.Sprintf("%s action: missing spell in config", a.kind))
	}
	spell := config.Spell
	if spell.SpellID == "" && spell.SpellName == "" {
		return entities.FailedResult(fmt.Sprintf("%s action: spell id or name required", a.kind))
	}

	actorID := targetActor(spell.ActorID, instance)
	if actorID == "" {
		return entities.FailedResult(fmt.Sprintf("%s action: no target actor", a.kind))
	}

	svc, failed := a.service(a.kind)
	if failed != nil {
		return *failed
	}

	effect := spellEffects[a.kind]
	res := svc.ApplySpellEffect(ctx, connectionID, interfaces.SpellEffectRequest{
		ActorID:        actorID,
		SpellID:        spell.SpellID,
		SpellName:      spell.SpellName,
		Effect:         effect,
		Modifier:       spell.Modifier,
		DurationRounds: spell.DurationRounds,
		Message:        spell.Message,
	})

	spellName := spell.SpellName
	if name, ok := res.Data["spellName"].(string); ok && name != "" {
		spellName = name
	}
	return commandResult(res, fmt.Sprintf("Spell %s applied", effect), map[string]any{
		"actorId":        actorID,
		"spellName":      spellName,
		"effect":         effect,
		"modifier":       spell.Modifier,
		"durationRounds": spell.DurationRounds,
	})
}
