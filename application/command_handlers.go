package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tumulte/application/dto"
	"tumulte/domain/entities"

	log "github.com/sirupsen/logrus"
)

type validator interface {
	Validate() error
}

// decodeCommand unmarshals and validates a command. Commands that can never
// be processed are logged and dropped.
func decodeCommand(data []byte, into validator, kind string) bool {
	if err := json.Unmarshal(data, into); err != nil {
		log.WithError(err).WithField("command", kind).Warn("Dropping undecodable command")
		return false
	}
	if err := into.Validate(); err != nil {
		log.WithError(err).WithField("command", kind).Warn("Dropping invalid command")
		return false
	}
	return true
}

// isPermanent reports errors that redelivery cannot fix
func isPermanent(err error) bool {
	return errors.Is(err, entities.ErrEventNotFound) ||
		errors.Is(err, entities.ErrCampaignNotFound) ||
		errors.Is(err, entities.ErrConfigNotFound) ||
		errors.Is(err, entities.ErrInstanceNotFound) ||
		errors.Is(err, entities.ErrInstanceTerminal) ||
		errors.Is(err, entities.ErrCampaignMismatch)
}

// TriggerHandler consumes manual trigger and cancellation commands
type TriggerHandler struct {
	triggers  TriggerProcessor
	instances InstanceCanceller
}

func NewTriggerHandler(triggers TriggerProcessor, instances InstanceCanceller) *TriggerHandler {
	return &TriggerHandler{triggers: triggers, instances: instances}
}

// HandleManual fires the trigger of the named event
func (h *TriggerHandler) HandleManual(ctx context.Context, data []byte) error {
	var cmd dto.TriggerCommandDTO
	if !decodeCommand(data, &cmd, "trigger") {
		return nil
	}

	fields := log.Fields{
		"campaign_id": cmd.CampaignID,
		"event_slug":  cmd.EventSlug,
	}
	instance, err := h.triggers.HandleTriggerBySlug(ctx, cmd.EventSlug, cmd.Data, cmd.TriggerContext())
	if isPermanent(err) {
		log.WithError(err).WithFields(fields).Warn("Dropping trigger command")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to trigger %s: %w", cmd.EventSlug, err)
	}

	if instance != nil {
		fields["instance_id"] = instance.ID
	}
	log.WithFields(fields).Info("Trigger command processed")
	return nil
}

// HandleCancel cancels an open instance
func (h *TriggerHandler) HandleCancel(ctx context.Context, data []byte) error {
	var cmd dto.CancelInstanceDTO
	if !decodeCommand(data, &cmd, "cancel") {
		return nil
	}

	reason := cmd.Reason
	if reason == "" {
		reason = "cancelled by game master"
	}
	err := h.instances.CancelInstance(ctx, cmd.InstanceID, cmd.CampaignID, reason)
	if isPermanent(err) {
		log.WithError(err).WithField("instance_id", cmd.InstanceID).Warn("Dropping cancel command")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to cancel instance %s: %w", cmd.InstanceID, err)
	}
	return nil
}

// RewardHandler consumes campaign gamification config changes and mirrors
// them on Twitch
type RewardHandler struct {
	rewards RewardController
}

func NewRewardHandler(rewards RewardController) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

// HandleEnabled creates the Twitch rewards of a config
func (h *RewardHandler) HandleEnabled(ctx context.Context, data []byte) error {
	var cmd dto.RewardCommandDTO
	if !decodeCommand(data, &cmd, "reward.enable") {
		return nil
	}
	_, err := h.rewards.Enable(ctx, cmd.ConfigID)
	return h.result(err, cmd, "enable")
}

// HandleDisabled deletes the Twitch rewards of a config
func (h *RewardHandler) HandleDisabled(ctx context.Context, data []byte) error {
	var cmd dto.RewardCommandDTO
	if !decodeCommand(data, &cmd, "reward.disable") {
		return nil
	}
	_, err := h.rewards.Disable(ctx, cmd.ConfigID)
	return h.result(err, cmd, "disable")
}

// HandleCostUpdated pushes a new cost to the Twitch rewards of a config
func (h *RewardHandler) HandleCostUpdated(ctx context.Context, data []byte) error {
	var cmd dto.RewardCommandDTO
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.WithError(err).WithField("command", "reward.cost").Warn("Dropping undecodable command")
		return nil
	}
	if err := cmd.ValidateCost(); err != nil {
		log.WithError(err).WithField("command", "reward.cost").Warn("Dropping invalid command")
		return nil
	}
	_, err := h.rewards.UpdateCost(ctx, cmd.ConfigID, cmd.Cost)
	return h.result(err, cmd, "update cost of")
}

func (h *RewardHandler) result(err error, cmd dto.RewardCommandDTO, action string) error {
	if isPermanent(err) {
		log.WithError(err).WithField("config_id", cmd.ConfigID).Warn("Dropping reward command")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to %s reward of config %s: %w", action, cmd.ConfigID, err)
	}
	return nil
}
