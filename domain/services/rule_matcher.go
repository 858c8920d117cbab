package services

import (
	"fmt"
	"sort"
	"strings"

	"tumulte/domain/entities"
)

const (
	ResultTypeCriticalSuccess = "critical_success"
	ResultTypeCriticalFailure = "critical_failure"
)

// RuleMatcher applies campaign rules in order: highest priority first, then
// oldest first. The first matching rule wins.
type RuleMatcher struct{}

func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{}
}

// ClassifyRoll returns the classification of the first criticality rule matching roll, nil if none
func (m *RuleMatcher) ClassifyRoll(rules []*entities.CampaignCriticalityRule, roll *entities.DiceRoll) *entities.RollClassification {
	if roll == nil {
		return nil
	}

	ordered := append([]*entities.CampaignCriticalityRule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	for _, rule := range ordered {
		if !rule.IsEnabled || !formulaMatches(rule.DiceFormula, roll) {
			continue
		}
		if !rule.Operator.Compare(roll.Result, rule.Value) {
			continue
		}

		classification := &entities.RollClassification{Rule: rule, ResultType: rule.ResultType}
		switch rule.ResultType {
		case ResultTypeCriticalSuccess:
			classification.Critical = entities.CriticalSuccess
		case ResultTypeCriticalFailure:
			classification.Critical = entities.CriticalFailure
		}
		return classification
	}
	return nil
}

// formulaMatches accepts an empty filter, an exact formula, or a die label such as "d20"
func formulaMatches(filter string, roll *entities.DiceRoll) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return true
	}
	if strings.EqualFold(filter, roll.Formula) || strings.EqualFold(filter, roll.DiceType) {
		return true
	}
	return strings.Contains(strings.ToLower(roll.Formula), filter)
}

// ApplyClassification flags roll as critical when the classification says so
func ApplyClassification(roll *entities.DiceRoll, c *entities.RollClassification) {
	if roll == nil || c == nil || c.Critical == "" {
		return
	}
	roll.IsCritical = true
	roll.CriticalType = c.Critical
}

// ClassifyItem returns the first item category rule matching item, nil if none
func (m *RuleMatcher) ClassifyItem(rules []*entities.CampaignItemCategoryRule, item map[string]any) *entities.CampaignItemCategoryRule {
	ordered := append([]*entities.CampaignItemCategoryRule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	for _, rule := range ordered {
		if !rule.IsEnabled {
			continue
		}
		value, ok := lookupPath(item, rule.MatchField)
		if ok && valueMatches(value, rule.MatchValue) {
			return rule
		}
	}
	return nil
}

func lookupPath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// valueMatches compares case-insensitively; list values match if any element does
func valueMatches(value any, want string) bool {
	if list, ok := value.([]any); ok {
		for _, v := range list {
			if valueMatches(v, want) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(fmt.Sprint(value), want)
}
