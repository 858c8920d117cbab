package actions

import (
	"context"

	"tumulte/domain/entities"
)

// ChatMessageAction posts a message in the VTT chat
type ChatMessageAction struct {
	foundryHandler
}

func NewChatMessageAction() *ChatMessageAction {
	return &ChatMessageAction{}
}

func (a *ChatMessageAction) Type() entities.ActionType {
	return entities.ActionTypeChatMessage
}

func (a *ChatMessageAction) Execute(ctx context.Context, cfg entities.ActionConfig, _ *entities.GamificationInstance, connectionID string) entities.ResultData {
	config, ok := cfg.(*entities.ChatMessageActionConfig)
	if !ok || config == nil || config.ChatMessage == nil || config.ChatMessage.Content == "" {
		return entities.FailedResult("chat_message action: missing chatMessage.content in config")
	}

	svc, failed := a.service(a.Type())
	if failed != nil {
		return *failed
	}

	speaker := config.ChatMessage.Speaker
	if speaker == "" {
		speaker = defaultSpeaker
	}

	res := svc.SendChatMessage(ctx, connectionID, config.ChatMessage.Content, speaker)
	return commandResult(res, "Chat message sent", map[string]any{
		"content": config.ChatMessage.Content,
		"speaker": speaker,
	})
}
