package foundry

import (
	"context"

	"tumulte/domain/interfaces"
)

// Command names understood by the Foundry module
const (
	CommandChatMessage   = "chat.message"
	CommandActorUpdate   = "actor.update"
	CommandRollInvert    = "roll.invert"
	CommandSpellEffect   = "spell.effect"
	CommandMonsterEffect = "monster.effect"
	CommandCustomPrefix  = "custom."
)

type result = interfaces.CommandResult

func failure(msg string) result {
	return result{Success: false, Error: msg}
}

// CommandService implements interfaces.FoundryCommandService on a Hub
type CommandService struct {
	hub *Hub
}

var _ interfaces.FoundryCommandService = (*CommandService)(nil)

// NewCommandService creates a command service sending through hub
func NewCommandService(hub *Hub) *CommandService {
	return &CommandService{hub: hub}
}

func (s *CommandService) IsConnected(connectionID string) bool {
	return s.hub.IsConnected(connectionID)
}

func (s *CommandService) SendChatMessage(ctx context.Context, connectionID, content, speaker string) result {
	return s.hub.send(ctx, connectionID, CommandChatMessage, map[string]any{
		"content": content,
		"speaker": speaker,
	})
}

func (s *CommandService) ModifyActor(ctx context.Context, connectionID, actorID string, updates map[string]any) result {
	if actorID == "" {
		return failure("actor id is required")
	}
	return s.hub.send(ctx, connectionID, CommandActorUpdate, map[string]any{
		"actorId": actorID,
		"updates": updates,
	})
}

func (s *CommandService) InvertLastRoll(ctx context.Context, connectionID string, req interfaces.InvertRollRequest) result {
	return s.hub.send(ctx, connectionID, CommandRollInvert, map[string]any{
		"rollId":           req.RollID,
		"characterId":      req.CharacterID,
		"originalResult":   req.OriginalResult,
		"invertedResult":   req.InvertedResult,
		"trollMessage":     req.TrollMessage,
		"keepOriginalRoll": req.KeepOriginalRoll,
	})
}

func (s *CommandService) ApplySpellEffect(ctx context.Context, connectionID string, req interfaces.SpellEffectRequest) result {
	return s.hub.send(ctx, connectionID, CommandSpellEffect, map[string]any{
		"actorId":        req.ActorID,
		"spellId":        req.SpellID,
		"spellName":      req.SpellName,
		"effect":         req.Effect,
		"modifier":       req.Modifier,
		"durationRounds": req.DurationRounds,
		"message":        req.Message,
	})
}

func (s *CommandService) ApplyMonsterEffect(ctx context.Context, connectionID string, req interfaces.MonsterEffectRequest) result {
	return s.hub.send(ctx, connectionID, CommandMonsterEffect, map[string]any{
		"actorId":        req.ActorID,
		"tokenId":        req.TokenID,
		"stat":           req.Stat,
		"effect":         req.Effect,
		"modifier":       req.Modifier,
		"durationRounds": req.DurationRounds,
		"message":        req.Message,
	})
}

// ExecuteCustom sends an arbitrary command under the custom namespace
func (s *CommandService) ExecuteCustom(ctx context.Context, connectionID, command string, params map[string]any) result {
	if command == "" {
		return failure("custom command name is required")
	}
	return s.hub.send(ctx, connectionID, CommandCustomPrefix+command, params)
}
