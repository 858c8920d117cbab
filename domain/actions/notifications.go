package actions

import (
	"fmt"

	"tumulte/domain/entities"
)

type notificationTemplate func(result map[string]any) (string, bool)

var notificationTemplates = map[entities.ActionType]notificationTemplate{
	entities.ActionTypeDiceInvert: func(r map[string]any) (string, bool) {
		original, ok1 := r["originalResult"]
		inverted, ok2 := r["invertedResult"]
		if !ok1 || !ok2 {
			return "", false
		}
		return fmt.Sprintf("Chat strikes! The roll of %v was inverted into %v", original, inverted), true
	},
	entities.ActionTypeSpellBuff: func(r map[string]any) (string, bool) {
		return withName(r, "spellName", "Chat blessed the spell %s", "Chat blessed a spell")
	},
	entities.ActionTypeSpellDebuff: func(r map[string]any) (string, bool) {
		return withName(r, "spellName", "Chat cursed the spell %s", "Chat cursed a spell")
	},
	entities.ActionTypeSpellDisable: func(r map[string]any) (string, bool) {
		return withName(r, "spellName", "Chat sealed the spell %s", "Chat sealed a spell")
	},
	entities.ActionTypeMonsterBuff: func(r map[string]any) (string, bool) {
		return withName(r, "monsterName", "Chat empowered %s", "Chat empowered a monster")
	},
	entities.ActionTypeMonsterDebuff: func(r map[string]any) (string, bool) {
		return withName(r, "monsterName", "Chat weakened %s", "Chat weakened a monster")
	},
}

func withName(r map[string]any, key, format, fallback string) (string, bool) {
	if name, ok := r[key].(string); ok && name != "" {
		return fmt.Sprintf(format, name), true
	}
	return fallback, true
}

// BuildNotificationMessage returns the Twitch chat announcement for an
// executed action, or nil when the action type has no template
func BuildNotificationMessage(actionType entities.ActionType, result *entities.ResultData) *string {
	tmpl, ok := notificationTemplates[actionType]
	if !ok {
		return nil
	}

	var actionResult map[string]any
	if result != nil {
		actionResult = result.ActionResult
	}

	msg, ok := tmpl(actionResult)
	if !ok {
		return nil
	}
	return &msg
}
