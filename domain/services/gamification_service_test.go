package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tumulte/domain/actions"
	"tumulte/domain/entities"
	"tumulte/domain/events"
	"tumulte/domain/interfaces"
	"tumulte/domain/testhelpers"
	"tumulte/domain/triggers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// serviceFixture wires a GamificationService over the fake unit of work
type serviceFixture struct {
	factory   *testhelpers.FakeUnitOfWorkFactory
	instances *testhelpers.InMemoryInstanceRepository
	configs   *testhelpers.MockCampaignGamificationConfigRepository
	events    *testhelpers.MockGamificationEventRepository
	campaigns *testhelpers.MockCampaignRepository
	streamers *testhelpers.MockStreamerRepository
	rewards   *testhelpers.MockStreamerRewardRepository
	rules     *testhelpers.MockCriticalityRuleRepository
	twitch    *testhelpers.MockRewardClient
	action    *countingAction
	service   *GamificationService
}

func newServiceFixture(seed ...*entities.GamificationInstance) *serviceFixture {
	f := &serviceFixture{
		instances: testhelpers.NewInMemoryInstanceRepository(seed...),
		configs:   &testhelpers.MockCampaignGamificationConfigRepository{},
		events:    &testhelpers.MockGamificationEventRepository{},
		campaigns: &testhelpers.MockCampaignRepository{},
		streamers: &testhelpers.MockStreamerRepository{},
		rewards:   &testhelpers.MockStreamerRewardRepository{},
		rules:     &testhelpers.MockCriticalityRuleRepository{},
		twitch:    &testhelpers.MockRewardClient{},
		action:    &countingAction{},
	}
	f.factory = testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
		Events:      f.events,
		Configs:     f.configs,
		Rewards:     f.rewards,
		Campaigns:   f.campaigns,
		Streamers:   f.streamers,
		Instances:   f.instances,
		Criticality: f.rules,
	})

	registry := actions.NewRegistry()
	registry.Register(f.action)

	f.service = NewGamificationService(
		f.factory,
		NewTriggerEvaluator(triggers.NewDefaultRegistry(), nil),
		newManager(f.factory),
		NewActionExecutor(registry, nil, nil),
		f.twitch,
	)
	return f
}

func TestGamificationService_HandleTrigger(t *testing.T) {
	t.Parallel()

	t.Run("opens an instance when the event is enabled", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.configs.On("GetByCampaignAndEvent", mock.Anything, testCampaignID, testEventID).Return(newTestConfig(), nil)
		f.campaigns.On("GetByID", mock.Anything, testCampaignID).Return(newTestCampaign(), nil)

		instance, err := f.service.HandleTrigger(context.Background(), newTestEvent(2), nil, entities.TriggerContext{CampaignID: testCampaignID})

		require.NoError(t, err)
		require.NotNil(t, instance)
		assert.Equal(t, entities.InstanceStatusActive, instance.Status)
	})

	t.Run("individual event defaults to the campaign owner", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.configs.On("GetByCampaignAndEvent", mock.Anything, testCampaignID, testEventID).Return(newTestConfig(), nil)
		f.campaigns.On("GetByID", mock.Anything, testCampaignID).Return(newTestCampaign(), nil)
		event := newTestEvent(2)
		event.Type = entities.EventTypeIndividual

		instance, err := f.service.HandleTrigger(context.Background(), event, nil, entities.TriggerContext{CampaignID: testCampaignID})

		require.NoError(t, err)
		require.NotNil(t, instance.StreamerID)
		assert.Equal(t, testOwnerID, *instance.StreamerID)
	})

	t.Run("disabled event is ignored", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		config := newTestConfig()
		config.IsEnabled = false
		f.configs.On("GetByCampaignAndEvent", mock.Anything, testCampaignID, testEventID).Return(config, nil)

		instance, err := f.service.HandleTrigger(context.Background(), newTestEvent(2), nil, entities.TriggerContext{CampaignID: testCampaignID})

		require.NoError(t, err)
		assert.Nil(t, instance)
		assert.Empty(t, f.instances.All())
	})

	t.Run("unknown trigger type opens nothing", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		event := newTestEvent(2)
		event.TriggerType = "unknown"

		instance, err := f.service.HandleTrigger(context.Background(), event, nil, entities.TriggerContext{CampaignID: testCampaignID})

		require.NoError(t, err)
		assert.Nil(t, instance)
		f.configs.AssertNotCalled(t, "GetByCampaignAndEvent", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGamificationService_HandleTriggerBySlug(t *testing.T) {
	t.Parallel()

	t.Run("resolves the event by slug", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		event := newTestEvent(2)
		f.events.On("GetBySlug", mock.Anything, event.Slug).Return(event, nil)
		f.configs.On("GetByCampaignAndEvent", mock.Anything, testCampaignID, testEventID).Return(newTestConfig(), nil)
		f.campaigns.On("GetByID", mock.Anything, testCampaignID).Return(newTestCampaign(), nil)

		instance, err := f.service.HandleTriggerBySlug(context.Background(), event.Slug, nil,
			entities.TriggerContext{CampaignID: testCampaignID, TriggeredBy: "manual"})

		require.NoError(t, err)
		require.NotNil(t, instance)
		assert.Equal(t, testEventID, instance.EventID)
	})

	t.Run("unknown slug", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.events.On("GetBySlug", mock.Anything, "missing").Return(nil, nil)

		instance, err := f.service.HandleTriggerBySlug(context.Background(), "missing", nil,
			entities.TriggerContext{CampaignID: testCampaignID})

		assert.ErrorIs(t, err, entities.ErrEventNotFound)
		assert.Nil(t, instance)
		assert.Empty(t, f.instances.All())
	})
}

func TestGamificationService_HandleDiceRoll(t *testing.T) {
	t.Parallel()

	diceEvent := newTestEvent(2)
	diceEvent.TriggerType = entities.TriggerTypeDiceCritical
	diceEvent.TriggerConfig = &entities.DiceCriticalTriggerConfig{
		CriticalFailure: &entities.CriticalBranch{Enabled: true},
	}
	diceEvent.Type = entities.EventTypeIndividual

	setup := func(rules []*entities.CampaignCriticalityRule) *serviceFixture {
		f := newServiceFixture()
		f.configs.On("GetEnabledByCampaign", mock.Anything, testCampaignID).Return([]*entities.CampaignGamificationConfig{newTestConfig()}, nil)
		f.events.On("GetByID", mock.Anything, testEventID).Return(diceEvent, nil)
		f.rules.On("GetByCampaign", mock.Anything, testCampaignID).Return(rules, nil)
		f.campaigns.On("GetMemberStreamers", mock.Anything, testCampaignID).Return(newTestMembers(), nil)
		return f
	}

	t.Run("critical failure opens one instance per member", func(t *testing.T) {
		t.Parallel()
		f := setup(nil)
		roll := &entities.DiceRoll{ID: "roll-1", Formula: "1d20", DiceType: "d20", Result: 1, IsCritical: true, CriticalType: entities.CriticalFailure}

		created, err := f.service.HandleDiceRoll(context.Background(), roll, entities.TriggerContext{CampaignID: testCampaignID})

		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, "roll-1", created[0].TriggerData.DiceRoll.RollID)
	})

	t.Run("ordinary roll opens nothing", func(t *testing.T) {
		t.Parallel()
		f := setup(nil)
		roll := &entities.DiceRoll{ID: "roll-2", Formula: "1d20", DiceType: "d20", Result: 12}

		created, err := f.service.HandleDiceRoll(context.Background(), roll, entities.TriggerContext{CampaignID: testCampaignID})

		require.NoError(t, err)
		assert.Empty(t, created)
	})

	t.Run("campaign rule turns a roll critical", func(t *testing.T) {
		t.Parallel()
		f := setup([]*entities.CampaignCriticalityRule{{
			Label: "fumble on 2", DiceFormula: "d20", Operator: entities.OperatorLessOrEqual, Value: 2,
			ResultType: ResultTypeCriticalFailure, IsEnabled: true,
		}})
		roll := &entities.DiceRoll{ID: "roll-3", Formula: "1d20", DiceType: "d20", Result: 2}
		streamer := testMemberID

		created, err := f.service.HandleDiceRoll(context.Background(), roll, entities.TriggerContext{CampaignID: testCampaignID, StreamerID: &streamer})

		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, testMemberID, *created[0].StreamerID)
	})
}

func TestGamificationService_HandleRedemption(t *testing.T) {
	t.Parallel()

	redemption := entities.ChannelPointRedemption{
		RedemptionID:  "red-1",
		RewardID:      "reward-1",
		BroadcasterID: testOwnerTwitchID,
		UserID:        "viewer-1",
		UserName:      "Viewer",
	}

	expectResolution := func(f *serviceFixture) {
		f.configs.On("GetByTwitchRewardID", mock.Anything, "reward-1").Return(newTestConfig(), nil)
		f.streamers.On("GetByTwitchUserID", mock.Anything, testOwnerTwitchID).Return(newTestMembers()[0], nil)
		f.events.On("GetByID", mock.Anything, testEventID).Return(newTestEvent(1), nil)
		f.campaigns.On("GetByID", mock.Anything, testCampaignID).Return(newTestCampaign(), nil)
	}

	t.Run("arming contribution executes the action", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(1, time.Now().Add(time.Hour))
		f := newServiceFixture(instance)
		expectResolution(f)

		outcome, err := f.service.HandleRedemption(context.Background(), redemption)

		require.NoError(t, err)
		require.NotNil(t, outcome)
		assert.True(t, outcome.Armed)
		assert.Equal(t, int32(1), f.action.calls.Load())

		stored, _ := f.instances.GetByID(context.Background(), instance.ID)
		assert.Equal(t, entities.InstanceStatusCompleted, stored.Status)
		assert.Equal(t, entities.ExecutionStatusExecuted, stored.ExecutionStatus)
		assert.Len(t, f.factory.Publisher.OfType(events.EventTypeInstanceCompleted), 1)
	})

	t.Run("no open instance refunds the viewer", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		expectResolution(f)
		f.twitch.On("UpdateRedemptionStatus", mock.Anything, testOwnerTwitchID, "reward-1", "red-1", RedemptionStatusCanceled).Return(nil)

		outcome, err := f.service.HandleRedemption(context.Background(), redemption)

		require.NoError(t, err)
		assert.Nil(t, outcome)
		f.twitch.AssertExpectations(t)
	})

	t.Run("unknown reward is ignored", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.configs.On("GetByTwitchRewardID", mock.Anything, "reward-1").Return(nil, nil)
		f.rewards.On("GetByTwitchRewardID", mock.Anything, "reward-1").Return(nil, nil)

		outcome, err := f.service.HandleRedemption(context.Background(), redemption)

		require.NoError(t, err)
		assert.Nil(t, outcome)
		f.twitch.AssertNotCalled(t, "UpdateRedemptionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate redemption does not execute twice", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(2, time.Now().Add(time.Hour))
		f := newServiceFixture(instance)
		f.configs.On("GetByTwitchRewardID", mock.Anything, "reward-1").Return(newTestConfig(), nil)
		f.streamers.On("GetByTwitchUserID", mock.Anything, testOwnerTwitchID).Return(newTestMembers()[0], nil)
		f.events.On("GetByID", mock.Anything, testEventID).Return(newTestEvent(2), nil)
		f.campaigns.On("GetByID", mock.Anything, testCampaignID).Return(newTestCampaign(), nil)
		ctx := context.Background()

		first, err := f.service.HandleRedemption(ctx, redemption)
		require.NoError(t, err)
		dup, err := f.service.HandleRedemption(ctx, redemption)
		require.NoError(t, err)

		assert.True(t, first.Accepted)
		assert.False(t, dup.Accepted)
		assert.Equal(t, 1, dup.Instance.CurrentProgress)
		assert.Equal(t, int32(0), f.action.calls.Load())
	})

	t.Run("redelivery after completion is not refunded", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(1, time.Now().Add(time.Hour))
		f := newServiceFixture(instance)
		expectResolution(f)
		ctx := context.Background()

		first, err := f.service.HandleRedemption(ctx, redemption)
		require.NoError(t, err)
		require.True(t, first.Armed)

		again, err := f.service.HandleRedemption(ctx, redemption)

		require.NoError(t, err)
		require.NotNil(t, again)
		assert.False(t, again.Accepted)
		assert.Equal(t, entities.InstanceStatusCompleted, again.Instance.Status)
		assert.Equal(t, int32(1), f.action.calls.Load())
		f.twitch.AssertNotCalled(t, "UpdateRedemptionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("redelivery to an expired instance is not refunded", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(3, time.Now().Add(time.Hour))
		f := newServiceFixture(instance)
		expectResolution(f)
		ctx := context.Background()

		_, err := f.service.HandleRedemption(ctx, redemption)
		require.NoError(t, err)
		_, err = f.instances.TransitionStatus(ctx, instance.ID,
			[]entities.InstanceStatus{entities.InstanceStatusActive}, entities.InstanceStatusExpired, time.Now())
		require.NoError(t, err)

		again, err := f.service.HandleRedemption(ctx, redemption)

		require.NoError(t, err)
		require.NotNil(t, again)
		assert.False(t, again.Accepted)
		f.twitch.AssertNotCalled(t, "UpdateRedemptionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGamificationService_ExecuteArmedInstances(t *testing.T) {
	t.Parallel()

	t.Run("concurrent sweeps execute each action once", func(t *testing.T) {
		t.Parallel()
		first := newOpenInstance(1, time.Now().Add(time.Hour))
		first.Status = entities.InstanceStatusArmed
		f := newServiceFixture(first)
		f.action.delay = 10 * time.Millisecond
		f.configs.On("GetEnabledByCampaign", mock.Anything, testCampaignID).Return([]*entities.CampaignGamificationConfig{newTestConfig()}, nil)
		f.events.On("GetByID", mock.Anything, testEventID).Return(newTestEvent(1), nil)
		f.campaigns.On("GetByID", mock.Anything, testCampaignID).Return(newTestCampaign(), nil)

		var wg sync.WaitGroup
		var mu sync.Mutex
		total := 0
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := f.service.ExecuteArmedInstances(context.Background(), testCampaignID)
				if assert.NoError(t, err) {
					mu.Lock()
					total += n
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, total)
		assert.Equal(t, int32(1), f.action.calls.Load())
	})

	t.Run("unknown campaign", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture()
		f.configs.On("GetEnabledByCampaign", mock.Anything, testCampaignID).Return([]*entities.CampaignGamificationConfig{}, nil)
		f.campaigns.On("GetByID", mock.Anything, testCampaignID).Return(nil, nil)

		_, err := f.service.ExecuteArmedInstances(context.Background(), testCampaignID)

		assert.ErrorIs(t, err, entities.ErrCampaignNotFound)
	})
}

func TestActionExecutor_Execute(t *testing.T) {
	t.Parallel()

	instance := newOpenInstance(1, time.Now().Add(time.Hour))

	t.Run("missing handler", func(t *testing.T) {
		t.Parallel()
		executor := NewActionExecutor(actions.NewRegistry(), nil, nil)

		result := executor.Execute(context.Background(), instance, newTestEvent(1), testConnectionID)

		assert.False(t, result.Success)
		assert.Equal(t, "no handler registered for action type: chat_message", result.Error)
	})

	t.Run("success notifies the campaign", func(t *testing.T) {
		t.Parallel()
		foundry := &testhelpers.MockFoundryCommandService{}
		foundry.On("InvertLastRoll", mock.Anything, testConnectionID, mock.Anything).
			Return(interfaces.CommandResult{Success: true})
		notifier := &testhelpers.MockChatNotifier{}
		notifier.On("NotifyCampaign", mock.Anything, testCampaignID, (*uuid.UUID)(nil), mock.MatchedBy(func(msg string) bool {
			return msg != ""
		})).Return(nil)

		registry := actions.NewDefaultRegistry()
		registry.WireFoundry(foundry)
		metrics := &recordingMetrics{}
		executor := NewActionExecutor(registry, notifier, metrics)

		event := newTestEvent(1)
		event.ActionType = entities.ActionTypeDiceInvert
		event.ActionConfig = &entities.DiceInvertActionConfig{DiceInvert: &entities.DiceInvertConfig{TrollMessage: "lol"}}
		rolled := copyOf(instance)
		rolled.TriggerData = &entities.TriggerData{DiceRoll: &entities.DiceRollTriggerData{
			RollID: "r", CharacterID: "c", CharacterName: "Grog", DiceType: "d20", Result: 1,
		}}

		result := executor.Execute(context.Background(), rolled, event, testConnectionID)

		require.True(t, result.Success, result.Error)
		notifier.AssertExpectations(t)
		assert.Equal(t, 1, metrics.actions["dice_invert:true"])
	})

	t.Run("panicking handler becomes a failed result", func(t *testing.T) {
		t.Parallel()
		registry := actions.NewRegistry()
		registry.Register(panickingAction{})
		notifier := &testhelpers.MockChatNotifier{}
		executor := NewActionExecutor(registry, notifier, nil)

		result := executor.Execute(context.Background(), instance, newTestEvent(1), testConnectionID)

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "panicked")
		notifier.AssertNotCalled(t, "NotifyCampaign", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("notification failure does not fail the action", func(t *testing.T) {
		t.Parallel()
		foundry := &testhelpers.MockFoundryCommandService{}
		foundry.On("InvertLastRoll", mock.Anything, testConnectionID, mock.Anything).Return(interfaces.CommandResult{Success: true})
		notifier := &testhelpers.MockChatNotifier{}
		notifier.On("NotifyCampaign", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("chat down"))
		registry := actions.NewDefaultRegistry()
		registry.WireFoundry(foundry)
		executor := NewActionExecutor(registry, notifier, nil)

		event := newTestEvent(1)
		event.ActionType = entities.ActionTypeDiceInvert
		event.ActionConfig = &entities.DiceInvertActionConfig{DiceInvert: &entities.DiceInvertConfig{}}
		rolled := copyOf(instance)
		rolled.TriggerData = &entities.TriggerData{DiceRoll: &entities.DiceRollTriggerData{CharacterID: "c", DiceType: "d20", Result: 20}}

		result := executor.Execute(context.Background(), rolled, event, testConnectionID)

		assert.True(t, result.Success)
	})
}

type panickingAction struct{}

func (panickingAction) Type() entities.ActionType      { return entities.ActionTypeChatMessage }
func (panickingAction) Requires() []actions.Dependency { return nil }
func (panickingAction) Execute(context.Context, entities.ActionConfig, *entities.GamificationInstance, string) entities.ResultData {
	panic("boom")
}
