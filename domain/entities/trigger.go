package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CriticalType classifies a critical roll
type CriticalType string

const (
	CriticalSuccess CriticalType = "success"
	CriticalFailure CriticalType = "failure"
)

// DiceRoll is a roll reported by the VTT module
type DiceRoll struct {
	ID            string       `json:"id"`
	CampaignID    uuid.UUID    `json:"campaignId"`
	CharacterID   string       `json:"characterId,omitempty"`
	CharacterName string       `json:"characterName,omitempty"`
	Formula       string       `json:"formula"`
	DiceType      string       `json:"diceType"`
	Result        int          `json:"result"`
	DiceResults   []int        `json:"diceResults,omitempty"`
	IsCritical    bool         `json:"isCritical"`
	CriticalType  CriticalType `json:"criticalType,omitempty"`
	RollType      string       `json:"rollType,omitempty"`
	IsHidden      bool         `json:"isHidden"`
	RolledAt      time.Time    `json:"rolledAt"`
}

// Sides returns the number of faces of the roll's die (20 for "d20"), or 0
func (r *DiceRoll) Sides() int {
	return DiceSides(r.DiceType)
}

// DiceSides parses a die label such as "d20" or "1d6"
func DiceSides(diceType string) int {
	s := strings.ToLower(strings.TrimSpace(diceType))
	idx := strings.LastIndex(s, "d")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(s[idx+1:])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// DiceRollTriggerData is the roll snapshot stored on an instance
type DiceRollTriggerData struct {
	RollID        string       `json:"rollId"`
	CharacterID   string       `json:"characterId,omitempty"`
	CharacterName string       `json:"characterName,omitempty"`
	Formula       string       `json:"formula,omitempty"`
	DiceType      string       `json:"diceType"`
	Result        int          `json:"result"`
	CriticalType  CriticalType `json:"criticalType"`
}

// TriggerData is what a trigger handler extracted from its input
type TriggerData struct {
	DiceRoll *DiceRollTriggerData `json:"diceRoll,omitempty"`
	Custom   any                  `json:"custom,omitempty"`
}

// TriggerEvaluationResult is the outcome of evaluating a trigger. It is never persisted.
type TriggerEvaluationResult struct {
	ShouldTrigger bool
	TriggerData   *TriggerData
	Reason        string
}

// NotTriggered builds a negative evaluation with a formatted reason
func NotTriggered(format string, args ...any) TriggerEvaluationResult {
	return TriggerEvaluationResult{
		ShouldTrigger: false,
		Reason:        fmt.Sprintf(format, args...),
	}
}

// TriggerContext carries the caller-side scope of a trigger
type TriggerContext struct {
	CampaignID   uuid.UUID
	StreamerID   *uuid.UUID
	ConnectionID string
	TriggeredBy  string
}
