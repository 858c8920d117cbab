package dto

import (
	"fmt"

	"tumulte/domain/entities"

	"github.com/google/uuid"
)

// TriggerCommandDTO asks the engine to fire a manual or custom trigger
type TriggerCommandDTO struct {
	CampaignID   uuid.UUID  `json:"campaignId"`
	EventSlug    string     `json:"eventSlug"`
	StreamerID   *uuid.UUID `json:"streamerId,omitempty"`
	ConnectionID string     `json:"connectionId,omitempty"`
	TriggeredBy  string     `json:"triggeredBy,omitempty"`
	Data         any        `json:"data,omitempty"`
}

func (d TriggerCommandDTO) Validate() error {
	if d.CampaignID == uuid.Nil {
		return fmt.Errorf("campaignId is required")
	}
	if d.EventSlug == "" {
		return fmt.Errorf("eventSlug is required")
	}
	return nil
}

// TriggerContext returns the context the trigger runs in
func (d TriggerCommandDTO) TriggerContext() entities.TriggerContext {
	triggeredBy := d.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "manual"
	}
	return entities.TriggerContext{
		CampaignID:   d.CampaignID,
		StreamerID:   d.StreamerID,
		ConnectionID: d.ConnectionID,
		TriggeredBy:  triggeredBy,
	}
}

// CancelInstanceDTO asks the engine to cancel an open instance
type CancelInstanceDTO struct {
	CampaignID uuid.UUID `json:"campaignId"`
	InstanceID uuid.UUID `json:"instanceId"`
	Reason     string    `json:"reason,omitempty"`
}

func (d CancelInstanceDTO) Validate() error {
	if d.CampaignID == uuid.Nil {
		return fmt.Errorf("campaignId is required")
	}
	if d.InstanceID == uuid.Nil {
		return fmt.Errorf("instanceId is required")
	}
	return nil
}

// RewardCommandDTO reports a change to a campaign gamification config
type RewardCommandDTO struct {
	ConfigID uuid.UUID `json:"configId"`
	// Cost is only read by cost updates
	Cost int `json:"cost,omitempty"`
}

func (d RewardCommandDTO) Validate() error {
	if d.ConfigID == uuid.Nil {
		return fmt.Errorf("configId is required")
	}
	return nil
}

// ValidateCost additionally requires a positive cost
func (d RewardCommandDTO) ValidateCost() error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Cost <= 0 {
		return fmt.Errorf("cost must be positive, got %d", d.Cost)
	}
	return nil
}
