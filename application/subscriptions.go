package application

import (
	"context"
	"encoding/json"
	"fmt"

	"tumulte/infrastructure"

	log "github.com/sirupsen/logrus"
)

// RegisterMessageHandlers routes every ingress subject to its handler
func RegisterMessageHandlers(
	consumer *infrastructure.MessageConsumer,
	diceRolls *DiceRollHandler,
	redemptions *RedemptionHandler,
	triggers *TriggerHandler,
	rewards *RewardHandler,
) {
	consumer.RegisterHandler(infrastructure.SubjectDiceRolled, diceRolls.HandleMessage)
	consumer.RegisterHandler(infrastructure.SubjectRedemptionAdded, redemptions.HandleAdded)
	consumer.RegisterHandler(infrastructure.SubjectRedemptionUpdated, redemptions.HandleUpdated)
	consumer.RegisterHandler(infrastructure.SubjectTriggerManual, triggers.HandleManual)
	consumer.RegisterHandler(infrastructure.SubjectInstanceCancel, triggers.HandleCancel)
	consumer.RegisterHandler(infrastructure.SubjectRewardEnabled, rewards.HandleEnabled)
	consumer.RegisterHandler(infrastructure.SubjectRewardDisabled, rewards.HandleDisabled)
	consumer.RegisterHandler(infrastructure.SubjectRewardCostUpdated, rewards.HandleCostUpdated)
}

// ModuleEventForwarder republishes dice rolls pushed by Foundry modules on vtt.dice.rolled
type ModuleEventForwarder struct {
	publisher SubjectPublisher
}

// NewModuleEventForwarder creates a forwarder publishing through publisher
func NewModuleEventForwarder(publisher SubjectPublisher) *ModuleEventForwarder {
	return &ModuleEventForwarder{publisher: publisher}
}

// Forward is a foundry.EventHandler
func (f *ModuleEventForwarder) Forward(ctx context.Context, connectionID, event string, payload json.RawMessage) {
	logger := log.WithFields(log.Fields{
		"connection_id": connectionID,
		"event":         event,
	})

	if event != "dice.rolled" {
		logger.Debug("Ignoring module event")
		return
	}

	data, err := withConnectionID(payload, connectionID)
	if err != nil {
		logger.WithError(err).Warn("Dropping malformed module event")
		return
	}

	if err := f.publisher.Publish(ctx, infrastructure.SubjectDiceRolled, data); err != nil {
		logger.WithError(err).Error("Failed to forward dice roll")
	}
}

// withConnectionID stamps the sending session on the message
func withConnectionID(payload json.RawMessage, connectionID string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	id, err := json.Marshal(connectionID)
	if err != nil {
		return nil, err
	}
	fields["connectionId"] = id
	return json.Marshal(fields)
}
