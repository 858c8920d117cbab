package entities

import (
	"encoding/json"
	"fmt"
)

// TriggerConfig is the typed configuration of a trigger. Each trigger type
// has exactly one concrete config; unknown types decode to RawTriggerConfig.
type TriggerConfig interface {
	TriggerType() TriggerType
}

// CriticalBranch configures one side (success or failure) of a critical trigger
type CriticalBranch struct {
	Enabled   bool   `json:"enabled"`
	Threshold int    `json:"threshold,omitempty"`
	DiceType  string `json:"diceType,omitempty"`
}

// DiceCriticalTriggerConfig fires on natural critical successes and failures
type DiceCriticalTriggerConfig struct {
	CriticalSuccess *CriticalBranch `json:"criticalSuccess,omitempty"`
	CriticalFailure *CriticalBranch `json:"criticalFailure,omitempty"`
}

func (c *DiceCriticalTriggerConfig) TriggerType() TriggerType { return TriggerTypeDiceCritical }

// ManualTriggerConfig has no parameters; manual triggers always fire
type ManualTriggerConfig struct{}

func (c *ManualTriggerConfig) TriggerType() TriggerType { return TriggerTypeManual }

// CustomTriggerConfig carries free-form parameters for custom triggers
type CustomTriggerConfig struct {
	Params map[string]any `json:"params,omitempty"`
}

func (c *CustomTriggerConfig) TriggerType() TriggerType { return TriggerTypeCustom }

// RawTriggerConfig preserves the configuration of a trigger type this build
// does not know about, so definitions can ship before their handler.
type RawTriggerConfig struct {
	Type TriggerType
	Raw  json.RawMessage
}

func (c *RawTriggerConfig) TriggerType() TriggerType { return c.Type }

// DecodeTriggerConfig decodes the stored JSON config for the given trigger type
func DecodeTriggerConfig(triggerType TriggerType, raw []byte) (TriggerConfig, error) {
	var cfg TriggerConfig
	switch triggerType {
	case TriggerTypeDiceCritical:
		cfg = &DiceCriticalTriggerConfig{}
	case TriggerTypeManual:
		cfg = &ManualTriggerConfig{}
	case TriggerTypeCustom:
		cfg = &CustomTriggerConfig{}
	default:
		return &RawTriggerConfig{Type: triggerType, Raw: append(json.RawMessage(nil), raw...)}, nil
	}

	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("invalid %s trigger config: %w", triggerType, err)
	}
	return cfg, nil
}

// EncodeTriggerConfig serializes a trigger config for storage
func EncodeTriggerConfig(cfg TriggerConfig) ([]byte, error) {
	if cfg == nil {
		return []byte("{}"), nil
	}
	if raw, ok := cfg.(*RawTriggerConfig); ok {
		if len(raw.Raw) == 0 {
			return []byte("{}"), nil
		}
		return raw.Raw, nil
	}
	return json.Marshal(cfg)
}
