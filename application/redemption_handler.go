package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tumulte/application/dto"

	log "github.com/sirupsen/logrus"
)

// RedemptionHandler consumes channel point redemption notifications
type RedemptionHandler struct {
	processor RedemptionProcessor
}

// NewRedemptionHandler creates a new redemption handler
func NewRedemptionHandler(processor RedemptionProcessor) *RedemptionHandler {
	return &RedemptionHandler{processor: processor}
}

func decodeRedemption(data []byte) (*dto.RedemptionEventDTO, bool) {
	var event dto.RedemptionEventDTO
	if err := json.Unmarshal(data, &event); err != nil {
		log.WithError(err).Warn("Dropping undecodable redemption message")
		return nil, false
	}
	if err := event.Validate(); err != nil {
		log.WithError(err).Warn("Dropping invalid redemption message")
		return nil, false
	}
	return &event, true
}

// HandleAdded applies a new redemption as a contribution
func (h *RedemptionHandler) HandleAdded(ctx context.Context, data []byte) error {
	event, ok := decodeRedemption(data)
	if !ok {
		return nil
	}

	outcome, err := h.processor.HandleRedemption(ctx, event.ToEntity())
	if err != nil {
		return fmt.Errorf("failed to handle redemption %s: %w", event.ID, err)
	}

	fields := log.Fields{
		"redemption_id": event.ID,
		"reward_id":     event.Reward.ID,
		"user":          event.UserLogin,
	}
	if outcome != nil {
		fields["accepted"] = outcome.Accepted
		fields["armed"] = outcome.Armed
	}
	log.WithFields(fields).Debug("Redemption processed")

	return nil
}

// HandleUpdated reverts the contribution of a redemption the broadcaster cancelled
func (h *RedemptionHandler) HandleUpdated(ctx context.Context, data []byte) error {
	event, ok := decodeRedemption(data)
	if !ok {
		return nil
	}
	if !strings.EqualFold(event.Status, "canceled") {
		log.WithFields(log.Fields{
			"redemption_id": event.ID,
			"status":        event.Status,
		}).Debug("Ignoring redemption update")
		return nil
	}

	if err := h.processor.HandleRefund(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to refund redemption %s: %w", event.ID, err)
	}
	return nil
}
