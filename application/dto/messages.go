package dto

import (
	"fmt"
	"time"

	"tumulte/domain/entities"

	"github.com/google/uuid"
)

// DiceRolledDTO is the vtt.dice.rolled message published for a Foundry roll
type DiceRolledDTO struct {
	CampaignID   uuid.UUID         `json:"campaignId"`
	StreamerID   *uuid.UUID        `json:"streamerId,omitempty"`
	ConnectionID string            `json:"connectionId"`
	Roll         entities.DiceRoll `json:"roll"`
}

// Validate rejects messages that can never be processed
func (d DiceRolledDTO) Validate() error {
	if d.CampaignID == uuid.Nil {
		return fmt.Errorf("campaignId is required")
	}
	if d.Roll.DiceType == "" && d.Roll.Formula == "" {
		return fmt.Errorf("roll has neither dice type nor formula")
	}
	return nil
}

// ToDiceRoll returns the roll bound to the message's campaign
func (d DiceRolledDTO) ToDiceRoll() *entities.DiceRoll {
	roll := d.Roll
	roll.CampaignID = d.CampaignID
	if roll.RolledAt.IsZero() {
		roll.RolledAt = time.Now().UTC()
	}
	return &roll
}

// RedemptionEventDTO is the event body of an EventSub channel point
// redemption notification, forwarded as-is by the webhook receiver
type RedemptionEventDTO struct {
	ID                   string    `json:"id"`
	BroadcasterUserID    string    `json:"broadcaster_user_id"`
	BroadcasterUserLogin string    `json:"broadcaster_user_login"`
	UserID               string    `json:"user_id"`
	UserLogin            string    `json:"user_login"`
	UserName             string    `json:"user_name"`
	UserInput            string    `json:"user_input"`
	Status               string    `json:"status"`
	Reward               RewardDTO `json:"reward"`
	RedeemedAt           time.Time `json:"redeemed_at"`
}

// RewardDTO is the reward section of a redemption event
type RewardDTO struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Cost   int    `json:"cost"`
	Prompt string `json:"prompt"`
}

// Validate rejects events missing the ids needed for dedup and lookup
func (r RedemptionEventDTO) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("redemption id is required")
	}
	if r.Reward.ID == "" {
		return fmt.Errorf("reward id is required")
	}
	return nil
}

// ToEntity converts the event to a domain redemption
func (r RedemptionEventDTO) ToEntity() entities.ChannelPointRedemption {
	return entities.ChannelPointRedemption{
		RedemptionID:  r.ID,
		RewardID:      r.Reward.ID,
		BroadcasterID: r.BroadcasterUserID,
		UserID:        r.UserID,
		UserLogin:     r.UserLogin,
		UserName:      r.UserName,
		Cost:          r.Reward.Cost,
		Status:        r.Status,
		RedeemedAt:    r.RedeemedAt,
	}
}

// PreFlightRequestDTO is the body of a pre-flight HTTP request
type PreFlightRequestDTO struct {
	EventType   string `json:"eventType"`
	Mode        string `json:"mode"`
	TriggeredBy string `json:"triggeredBy"`
}
