package entities

import (
	"time"

	"github.com/google/uuid"
)

// ComparisonOperator compares a roll result against a value
type ComparisonOperator string

const (
	OperatorEqual          ComparisonOperator = "=="
	OperatorGreaterOrEqual ComparisonOperator = ">="
	OperatorLessOrEqual    ComparisonOperator = "<="
	OperatorGreater        ComparisonOperator = ">"
	OperatorLess           ComparisonOperator = "<"
)

// Compare applies the operator to a and b. Unknown operators never match.
func (o ComparisonOperator) Compare(a, b int) bool {
	switch o {
	case OperatorEqual:
		return a == b
	case OperatorGreaterOrEqual:
		return a >= b
	case OperatorLessOrEqual:
		return a <= b
	case OperatorGreater:
		return a > b
	case OperatorLess:
		return a < b
	}
	return false
}

// CampaignCriticalityRule classifies dice rolls for a campaign
type CampaignCriticalityRule struct {
	ID          uuid.UUID          `db:"id"`
	CampaignID  uuid.UUID          `db:"campaign_id"`
	Label       string             `db:"label"`
	DiceFormula string             `db:"dice_formula"`
	Operator    ComparisonOperator `db:"operator"`
	Value       int                `db:"value"`
	// ResultType is "critical_success", "critical_failure" or a free label
	ResultType string    `db:"result_type"`
	Priority   int       `db:"priority"`
	IsEnabled  bool      `db:"is_enabled"`
	CreatedAt  time.Time `db:"created_at"`
}

// CampaignItemCategoryRule classifies VTT items for a campaign
type CampaignItemCategoryRule struct {
	ID         uuid.UUID `db:"id"`
	CampaignID uuid.UUID `db:"campaign_id"`
	Category   string    `db:"category"`
	// MatchField is a dotted path into the item data, e.g. "type" or "system.traits.value"
	MatchField string    `db:"match_field"`
	MatchValue string    `db:"match_value"`
	Priority   int       `db:"priority"`
	IsEnabled  bool      `db:"is_enabled"`
	CreatedAt  time.Time `db:"created_at"`
}

// RollClassification is the result of applying criticality rules to a roll
type RollClassification struct {
	Rule       *CampaignCriticalityRule
	ResultType string
	Critical   CriticalType
}
