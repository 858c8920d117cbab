package repository

import (
	"context"
	"fmt"

	"tumulte/database"
	"tumulte/domain/entities"

	"github.com/google/uuid"
)

// CriticalityRuleRepository implements interfaces.CriticalityRuleRepository
type CriticalityRuleRepository struct {
	q Queryable
}

// NewCriticalityRuleRepository creates a new criticality rule repository
func NewCriticalityRuleRepository(db *database.DB) *CriticalityRuleRepository {
	return &CriticalityRuleRepository{q: db.Pool}
}

// NewCriticalityRuleRepositoryScoped creates a criticality rule repository bound to a transaction
func NewCriticalityRuleRepositoryScoped(tx Queryable) *CriticalityRuleRepository {
	return &CriticalityRuleRepository{q: tx}
}

// GetByCampaign returns the rules of a campaign in evaluation order
func (r *CriticalityRuleRepository) GetByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.CampaignCriticalityRule, error) {
	query := `
		SELECT id, campaign_id, label, dice_formula, operator, value, result_type,
			priority, is_enabled, created_at
		FROM campaign_criticality_rules
		WHERE campaign_id = $1
		ORDER BY priority DESC, created_at`

	rows, err := r.q.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query criticality rules of campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	var result []*entities.CampaignCriticalityRule
	for rows.Next() {
		var rule entities.CampaignCriticalityRule
		var operator string
		err := rows.Scan(
			&rule.ID, &rule.CampaignID, &rule.Label, &rule.DiceFormula, &operator,
			&rule.Value, &rule.ResultType, &rule.Priority, &rule.IsEnabled, &rule.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan criticality rule: %w", err)
		}
		rule.Operator = entities.ComparisonOperator(operator)
		result = append(result, &rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating criticality rules: %w", err)
	}

	return result, nil
}

// ItemCategoryRuleRepository implements interfaces.ItemCategoryRuleRepository
type ItemCategoryRuleRepository struct {
	q Queryable
}

// NewItemCategoryRuleRepository creates a new item category rule repository
func NewItemCategoryRuleRepository(db *database.DB) *ItemCategoryRuleRepository {
	return &ItemCategoryRuleRepository{q: db.Pool}
}

// NewItemCategoryRuleRepositoryScoped creates an item category rule repository bound to a transaction
func NewItemCategoryRuleRepositoryScoped(tx Queryable) *ItemCategoryRuleRepository {
	return &ItemCategoryRuleRepository{q: tx}
}

// GetByCampaign returns the rules of a campaign in evaluation order
func (r *ItemCategoryRuleRepository) GetByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.CampaignItemCategoryRule, error) {
	query := `
		SELECT id, campaign_id, category, match_field, match_value, priority, is_enabled, created_at
		FROM campaign_item_category_rules
		WHERE campaign_id = $1
		ORDER BY priority DESC, created_at`

	rows, err := r.q.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query item category rules of campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	var result []*entities.CampaignItemCategoryRule
	for rows.Next() {
		var rule entities.CampaignItemCategoryRule
		err := rows.Scan(
			&rule.ID, &rule.CampaignID, &rule.Category, &rule.MatchField,
			&rule.MatchValue, &rule.Priority, &rule.IsEnabled, &rule.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item category rule: %w", err)
		}
		result = append(result, &rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item category rules: %w", err)
	}

	return result, nil
}
