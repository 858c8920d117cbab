package entities

import (
	"encoding/json"
	"fmt"
)

// ActionConfig is the typed configuration of an action. The sub-config
// pointers may be nil when the stored definition is incomplete; handlers
// report that as a failed execution.
type ActionConfig interface {
	ActionType() ActionType
}

// ChatMessageConfig describes a message posted to the VTT chat
type ChatMessageConfig struct {
	Content string `json:"content"`
	Speaker string `json:"speaker,omitempty"`
}

type ChatMessageActionConfig struct {
	ChatMessage *ChatMessageConfig `json:"chatMessage,omitempty"`
}

func (c *ChatMessageActionConfig) ActionType() ActionType { return ActionTypeChatMessage }

// StatModifyConfig describes a direct actor data update. An empty ActorID
// targets the character that produced the triggering roll.
type StatModifyConfig struct {
	ActorID string         `json:"actorId,omitempty"`
	Updates map[string]any `json:"updates"`
}

type StatModifyActionConfig struct {
	StatModify *StatModifyConfig `json:"statModify,omitempty"`
}

func (c *StatModifyActionConfig) ActionType() ActionType { return ActionTypeStatModify }

// DiceInvertConfig describes the inversion of the triggering roll
type DiceInvertConfig struct {
	TrollMessage     string `json:"trollMessage,omitempty"`
	AnnounceInChat   bool   `json:"announceInChat"`
	KeepOriginalRoll bool   `json:"keepOriginalRoll"`
}

type DiceInvertActionConfig struct {
	DiceInvert *DiceInvertConfig `json:"diceInvert,omitempty"`
}

func (c *DiceInvertActionConfig) ActionType() ActionType { return ActionTypeDiceInvert }

// SpellEffectConfig describes a buff, debuff or disable applied to a spell
type SpellEffectConfig struct {
	ActorID        string `json:"actorId,omitempty"`
	SpellID        string `json:"spellId,omitempty"`
	SpellName      string `json:"spellName,omitempty"`
	Modifier       int    `json:"modifier,omitempty"`
	DurationRounds int    `json:"durationRounds,omitempty"`
	Message        string `json:"message,omitempty"`
}

// SpellActionConfig is shared by the three spell action types; Kind records
// which one the definition was decoded for.
type SpellActionConfig struct {
	Kind  ActionType         `json:"-"`
	Spell *SpellEffectConfig `json:"spell,omitempty"`
}

func (c *SpellActionConfig) ActionType() ActionType { return c.Kind }

// MonsterEffectConfig describes a stat modifier applied to a hostile token
type MonsterEffectConfig struct {
	ActorID        string `json:"actorId,omitempty"`
	TokenID        string `json:"tokenId,omitempty"`
	Stat           string `json:"stat"`
	Modifier       int    `json:"modifier"`
	DurationRounds int    `json:"durationRounds,omitempty"`
	Message        string `json:"message,omitempty"`
}

// MonsterActionConfig is shared by monster_buff and monster_debuff
type MonsterActionConfig struct {
	Kind    ActionType           `json:"-"`
	Monster *MonsterEffectConfig `json:"monster,omitempty"`
}

func (c *MonsterActionConfig) ActionType() ActionType { return c.Kind }

// CustomActionConfig forwards arbitrary parameters to the VTT module
type CustomActionConfig struct {
	Command string         `json:"command,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

func (c *CustomActionConfig) ActionType() ActionType { return ActionTypeCustom }

// RawActionConfig preserves the configuration of an unknown action type
type RawActionConfig struct {
	Type ActionType
	Raw  json.RawMessage
}

func (c *RawActionConfig) ActionType() ActionType { return c.Type }

// DecodeActionConfig decodes the stored JSON config for the given action type
func DecodeActionConfig(actionType ActionType, raw []byte) (ActionConfig, error) {
	var cfg ActionConfig
	switch actionType {
	case ActionTypeChatMessage:
		cfg = &ChatMessageActionConfig{}
	case ActionTypeStatModify:
		cfg = &StatModifyActionConfig{}
	case ActionTypeDiceInvert:
		cfg = &DiceInvertActionConfig{}
	case ActionTypeSpellBuff, ActionTypeSpellDebuff, ActionTypeSpellDisable:
		cfg = &SpellActionConfig{Kind: actionType}
	case ActionTypeMonsterBuff, ActionTypeMonsterDebuff:
		cfg = &MonsterActionConfig{Kind: actionType}
	case ActionTypeCustom:
		cfg = &CustomActionConfig{}
	default:
		return &RawActionConfig{Type: actionType, Raw: append(json.RawMessage(nil), raw...)}, nil
	}

	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("invalid %s action config: %w", actionType, err)
	}
	return cfg, nil
}

// EncodeActionConfig serializes an action config for storage
func EncodeActionConfig(cfg ActionConfig) ([]byte, error) {
	if cfg == nil {
		return []byte("{}"), nil
	}
	if raw, ok := cfg.(*RawActionConfig); ok {
		if len(raw.Raw) == 0 {
			return []byte("{}"), nil
		}
		return raw.Raw, nil
	}
	return json.Marshal(cfg)
}
