package repository

import (
	"context"
	"testing"
	"time"

	"tumulte/domain/entities"
	"tumulte/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGamificationEventRepository_DecodesTypedConfigs(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewGamificationEventRepository(testDB.DB)

	event := testutil.NewTestEvent("nat-20")
	event.TriggerType = entities.TriggerTypeDiceCritical
	event.TriggerConfig = &entities.DiceCriticalTriggerConfig{
		CriticalSuccess: &entities.CriticalBranch{Enabled: true, Threshold: 20, DiceType: "d20"},
	}
	require.NoError(t, repo.Create(ctx, event))

	stored, err := repo.GetBySlug(ctx, "nat-20")
	require.NoError(t, err)
	require.NotNil(t, stored)

	trigger, ok := stored.TriggerConfig.(*entities.DiceCriticalTriggerConfig)
	require.True(t, ok)
	require.NotNil(t, trigger.CriticalSuccess)
	assert.Equal(t, 20, trigger.CriticalSuccess.Threshold)
	assert.Nil(t, trigger.CriticalFailure)

	action, ok := stored.ActionConfig.(*entities.ChatMessageActionConfig)
	require.True(t, ok)
	assert.Equal(t, "The dice gods laugh", action.ChatMessage.Content)
	assert.Equal(t, 600, stored.CooldownConfig.DurationSeconds)
	assert.True(t, stored.HasTimeCooldown())

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCampaignGamificationConfigRepository_RewardLifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	owner := testDB.SeedStreamer(t, "2001")
	member := testDB.SeedStreamer(t, "2002")
	campaign := testDB.SeedCampaign(t, owner, member)

	event := testutil.NewTestEvent("chaos")
	require.NoError(t, NewGamificationEventRepository(testDB.DB).Create(ctx, event))

	configs := NewCampaignGamificationConfigRepository(testDB.DB)
	rewards := NewStreamerRewardRepository(testDB.DB)

	cost := 250
	config := &entities.CampaignGamificationConfig{
		CampaignID: campaign.ID,
		EventID:    event.ID,
		IsEnabled:  true,
		Cost:       &cost,
	}
	config.BroadcasterID = owner.TwitchUserID
	config.MarkActive("reward-owner")
	require.NoError(t, configs.Create(ctx, config))

	byReward, err := configs.GetByTwitchRewardID(ctx, "reward-owner")
	require.NoError(t, err)
	require.NotNil(t, byReward)
	assert.Equal(t, config.ID, byReward.ID)
	assert.Equal(t, 250, byReward.EffectiveCost(event))
	assert.Equal(t, entities.RewardStatusActive, byReward.TwitchRewardStatus)

	enabled, err := configs.GetEnabledByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Len(t, enabled, 1)

	reward := &entities.StreamerReward{ConfigID: config.ID, StreamerID: member.ID, IsEnabled: true}
	reward.BroadcasterID = member.TwitchUserID
	reward.MarkActive("reward-member")
	require.NoError(t, rewards.Create(ctx, reward))

	active, err := rewards.GetActiveByStreamer(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "reward-member", *active[0].TwitchRewardID)

	now := time.Now().UTC().Truncate(time.Microsecond)
	config.IsEnabled = false
	config.MarkOrphaned(now, now.Add(time.Minute))
	require.NoError(t, configs.Update(ctx, config))

	orphans, err := configs.GetByRewardStatus(ctx, entities.RewardStatusOrphaned)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, 1, orphans[0].DeletionRetryCount)
	assert.True(t, orphans[0].IsDueForRetry(now.Add(time.Minute)))
	assert.False(t, orphans[0].IsDueForRetry(now))

	reward.IsEnabled = false
	reward.MarkDeleted()
	require.NoError(t, rewards.Update(ctx, reward))

	active, err = rewards.GetActiveByStreamer(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	byConfig, err := rewards.GetByConfig(ctx, config.ID)
	require.NoError(t, err)
	require.Len(t, byConfig, 1)
	assert.Nil(t, byConfig[0].TwitchRewardID)
	assert.Equal(t, entities.RewardStatusDeleted, byConfig[0].TwitchRewardStatus)

	unknown := &entities.CampaignGamificationConfig{ID: uuid.New()}
	assert.ErrorIs(t, configs.Update(ctx, unknown), entities.ErrConfigNotFound)
}
