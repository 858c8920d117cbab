package application

import (
	"context"
	"encoding/json"
	"fmt"

	"tumulte/application/dto"
	"tumulte/domain/entities"

	log "github.com/sirupsen/logrus"
)

// DiceRollHandler consumes vtt.dice.rolled messages
type DiceRollHandler struct {
	processor DiceRollProcessor
}

// NewDiceRollHandler creates a new dice roll handler
func NewDiceRollHandler(processor DiceRollProcessor) *DiceRollHandler {
	return &DiceRollHandler{processor: processor}
}

// HandleMessage decodes a roll and evaluates it. Malformed messages are
// dropped so they are not redelivered.
func (h *DiceRollHandler) HandleMessage(ctx context.Context, data []byte) error {
	var msg dto.DiceRolledDTO
	if err := json.Unmarshal(data, &msg); err != nil {
		log.WithError(err).Warn("Dropping undecodable dice roll message")
		return nil
	}
	if err := msg.Validate(); err != nil {
		log.WithError(err).Warn("Dropping invalid dice roll message")
		return nil
	}

	roll := msg.ToDiceRoll()
	instances, err := h.processor.HandleDiceRoll(ctx, roll, entities.TriggerContext{
		CampaignID:   msg.CampaignID,
		StreamerID:   msg.StreamerID,
		ConnectionID: msg.ConnectionID,
		TriggeredBy:  "vtt",
	})
	if err != nil {
		return fmt.Errorf("failed to handle dice roll %s: %w", roll.ID, err)
	}

	log.WithFields(log.Fields{
		"campaign_id": msg.CampaignID,
		"roll_id":     roll.ID,
		"result":      roll.Result,
		"instances":   len(instances),
	}).Debug("Dice roll processed")

	return nil
}
