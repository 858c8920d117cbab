package entities

import (
	"time"

	"github.com/google/uuid"
)

// GamificationEventType determines how instances of an event are keyed
type GamificationEventType string

const (
	// EventTypeIndividual instances are scoped to a single streamer
	EventTypeIndividual GamificationEventType = "individual"
	// EventTypeGroup instances are shared by every streamer of a campaign
	EventTypeGroup GamificationEventType = "group"
)

// TriggerType identifies the trigger handler used to evaluate an event
type TriggerType string

const (
	TriggerTypeDiceCritical TriggerType = "dice_critical"
	TriggerTypeManual       TriggerType = "manual"
	TriggerTypeCustom       TriggerType = "custom"
)

// ActionType identifies the action handler used to execute an event
type ActionType string

const (
	ActionTypeChatMessage   ActionType = "chat_message"
	ActionTypeStatModify    ActionType = "stat_modify"
	ActionTypeDiceInvert    ActionType = "dice_invert"
	ActionTypeSpellBuff     ActionType = "spell_buff"
	ActionTypeSpellDebuff   ActionType = "spell_debuff"
	ActionTypeSpellDisable  ActionType = "spell_disable"
	ActionTypeMonsterBuff   ActionType = "monster_buff"
	ActionTypeMonsterDebuff ActionType = "monster_debuff"
	ActionTypeCustom        ActionType = "custom"
)

// CooldownType selects the cooldown policy applied after an instance completes
type CooldownType string

const (
	CooldownTypeNone CooldownType = "none"
	CooldownTypeTime CooldownType = "time"
)

// CooldownConfig holds the parameters of a cooldown policy
type CooldownConfig struct {
	DurationSeconds int `json:"durationSeconds"`
}

// GamificationEvent is an immutable event definition shared across campaigns
type GamificationEvent struct {
	ID                          uuid.UUID             `db:"id"`
	Slug                        string                `db:"slug"`
	Name                        string                `db:"name"`
	Description                 string                `db:"description"`
	Type                        GamificationEventType `db:"type"`
	TriggerType                 TriggerType           `db:"trigger_type"`
	TriggerConfig               TriggerConfig         `db:"trigger_config"`
	ActionType                  ActionType            `db:"action_type"`
	ActionConfig                ActionConfig          `db:"action_config"`
	DefaultCost                 int                   `db:"default_cost"`
	DefaultObjectiveCoefficient float64               `db:"default_objective_coefficient"`
	DefaultMinimumObjective     int                   `db:"default_minimum_objective"`
	DefaultDurationSeconds      int                   `db:"default_duration_seconds"`
	CooldownType                CooldownType          `db:"cooldown_type"`
	CooldownConfig              CooldownConfig        `db:"cooldown_config"`
	IsSystemEvent               bool                  `db:"is_system_event"`
	CreatedAt                   time.Time             `db:"created_at"`
	UpdatedAt                   time.Time             `db:"updated_at"`
}

// IsIndividual returns true if instances are keyed per streamer
func (e *GamificationEvent) IsIndividual() bool {
	return e.Type == EventTypeIndividual
}

// HasTimeCooldown returns true if the event blocks new instances for a duration after completion
func (e *GamificationEvent) HasTimeCooldown() bool {
	return e.CooldownType == CooldownTypeTime && e.CooldownConfig.DurationSeconds > 0
}
