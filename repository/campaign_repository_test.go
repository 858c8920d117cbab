package repository

import (
	"context"
	"testing"

	"tumulte/domain/entities"
	"tumulte/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignRepository_GetMemberStreamers(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	owner := testDB.SeedStreamer(t, "3001")
	first := testDB.SeedStreamer(t, "3002")
	second := testDB.SeedStreamer(t, "3003")
	inactive := testDB.SeedStreamer(t, "3004")
	_, err := testDB.DB.Exec(ctx, `UPDATE streamers SET is_active = FALSE WHERE id = $1`, inactive.ID)
	require.NoError(t, err)

	campaign := testDB.SeedCampaign(t, owner, first, second, inactive)
	repo := NewCampaignRepository(testDB.DB)

	stored, err := repo.GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, owner.ID, stored.OwnerStreamerID)
	assert.Equal(t, "conn-3001", stored.VTTConnectionID)

	members, err := repo.GetMemberStreamers(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, owner.ID, members[0].ID)
	assert.Equal(t, first.ID, members[1].ID)
	assert.Equal(t, second.ID, members[2].ID)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	streamers := NewStreamerRepository(testDB.DB)
	byTwitch, err := streamers.GetByTwitchUserID(ctx, "3002")
	require.NoError(t, err)
	require.NotNil(t, byTwitch)
	assert.Equal(t, first.ID, byTwitch.ID)

	active, err := streamers.GetActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestRuleRepositories_EvaluationOrder(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	owner := testDB.SeedStreamer(t, "4001")
	campaign := testDB.SeedCampaign(t, owner)

	low := &entities.CampaignCriticalityRule{
		CampaignID: campaign.ID, Label: "low", DiceFormula: "d20",
		Operator: entities.OperatorEqual, Value: 20, ResultType: "critical_success",
		Priority: 1, IsEnabled: true,
	}
	high := &entities.CampaignCriticalityRule{
		CampaignID: campaign.ID, Label: "high", DiceFormula: "d20",
		Operator: entities.OperatorGreaterOrEqual, Value: 19, ResultType: "critical_success",
		Priority: 10, IsEnabled: true,
	}
	testDB.SeedCriticalityRule(t, low)
	testDB.SeedCriticalityRule(t, high)

	rules, err := NewCriticalityRuleRepository(testDB.DB).GetByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "high", rules[0].Label)
	assert.Equal(t, entities.OperatorGreaterOrEqual, rules[0].Operator)

	items, err := NewItemCategoryRuleRepository(testDB.DB).GetByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
