package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestTriggerHandler_HandleManual(t *testing.T) {
	campaignID := uuid.New()

	t.Run("fires the event with a manual context", func(t *testing.T) {
		triggers := &mockTriggerProcessor{}
		handler := NewTriggerHandler(triggers, &mockInstanceCanceller{})
		triggers.On("HandleTriggerBySlug", mock.Anything, "dice-critical", mock.Anything,
			entities.TriggerContext{CampaignID: campaignID, ConnectionID: "table-1", TriggeredBy: "manual"},
		).Return(&entities.GamificationInstance{ID: uuid.New()}, nil)

		data := mustJSON(t, map[string]any{
			"campaignId":   campaignID,
			"eventSlug":    "dice-critical",
			"connectionId": "table-1",
		})

		require.NoError(t, handler.HandleManual(context.Background(), data))
		triggers.AssertExpectations(t)
	})

	t.Run("drops invalid commands", func(t *testing.T) {
		triggers := &mockTriggerProcessor{}
		handler := NewTriggerHandler(triggers, &mockInstanceCanceller{})

		assert.NoError(t, handler.HandleManual(context.Background(), []byte("nope")))
		assert.NoError(t, handler.HandleManual(context.Background(), mustJSON(t, map[string]any{"eventSlug": "dice-critical"})))
		assert.NoError(t, handler.HandleManual(context.Background(), mustJSON(t, map[string]any{"campaignId": campaignID})))
		triggers.AssertNotCalled(t, "HandleTriggerBySlug", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown events are dropped", func(t *testing.T) {
		triggers := &mockTriggerProcessor{}
		handler := NewTriggerHandler(triggers, &mockInstanceCanceller{})
		triggers.On("HandleTriggerBySlug", mock.Anything, "missing", mock.Anything, mock.Anything).
			Return(nil, entities.ErrEventNotFound)

		data := mustJSON(t, map[string]any{"campaignId": campaignID, "eventSlug": "missing"})
		assert.NoError(t, handler.HandleManual(context.Background(), data))
	})

	t.Run("transient failures are redelivered", func(t *testing.T) {
		triggers := &mockTriggerProcessor{}
		handler := NewTriggerHandler(triggers, &mockInstanceCanceller{})
		triggers.On("HandleTriggerBySlug", mock.Anything, "dice-critical", mock.Anything, mock.Anything).
			Return(nil, errors.New("db down"))

		data := mustJSON(t, map[string]any{"campaignId": campaignID, "eventSlug": "dice-critical"})
		assert.Error(t, handler.HandleManual(context.Background(), data))
	})
}

func TestTriggerHandler_HandleCancel(t *testing.T) {
	campaignID := uuid.New()
	instanceID := uuid.New()

	t.Run("cancels with the given reason", func(t *testing.T) {
		instances := &mockInstanceCanceller{}
		handler := NewTriggerHandler(&mockTriggerProcessor{}, instances)
		instances.On("CancelInstance", mock.Anything, instanceID, campaignID, "scene ended").Return(nil)

		data := mustJSON(t, map[string]any{"campaignId": campaignID, "instanceId": instanceID, "reason": "scene ended"})

		require.NoError(t, handler.HandleCancel(context.Background(), data))
		instances.AssertExpectations(t)
	})

	t.Run("defaults the reason", func(t *testing.T) {
		instances := &mockInstanceCanceller{}
		handler := NewTriggerHandler(&mockTriggerProcessor{}, instances)
		instances.On("CancelInstance", mock.Anything, instanceID, campaignID, "cancelled by game master").Return(nil)

		data := mustJSON(t, map[string]any{"campaignId": campaignID, "instanceId": instanceID})

		require.NoError(t, handler.HandleCancel(context.Background(), data))
		instances.AssertExpectations(t)
	})

	t.Run("instances of another campaign are dropped", func(t *testing.T) {
		instances := &mockInstanceCanceller{}
		handler := NewTriggerHandler(&mockTriggerProcessor{}, instances)
		instances.On("CancelInstance", mock.Anything, instanceID, campaignID, mock.Anything).Return(entities.ErrCampaignMismatch)

		data := mustJSON(t, map[string]any{"campaignId": campaignID, "instanceId": instanceID})
		assert.NoError(t, handler.HandleCancel(context.Background(), data))
	})

	t.Run("missing instance id is dropped", func(t *testing.T) {
		instances := &mockInstanceCanceller{}
		handler := NewTriggerHandler(&mockTriggerProcessor{}, instances)

		assert.NoError(t, handler.HandleCancel(context.Background(), mustJSON(t, map[string]any{"campaignId": campaignID})))
		instances.AssertNotCalled(t, "CancelInstance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRewardHandler(t *testing.T) {
	configID := uuid.New()
	data := mustJSON(t, map[string]any{"configId": configID})

	t.Run("enable", func(t *testing.T) {
		rewards := &mockRewardController{}
		rewards.On("Enable", mock.Anything, configID).Return(&entities.CampaignGamificationConfig{ID: configID}, nil)

		require.NoError(t, NewRewardHandler(rewards).HandleEnabled(context.Background(), data))
		rewards.AssertExpectations(t)
	})

	t.Run("disable", func(t *testing.T) {
		rewards := &mockRewardController{}
		rewards.On("Disable", mock.Anything, configID).Return(&entities.CampaignGamificationConfig{ID: configID}, nil)

		require.NoError(t, NewRewardHandler(rewards).HandleDisabled(context.Background(), data))
		rewards.AssertExpectations(t)
	})

	t.Run("cost update", func(t *testing.T) {
		rewards := &mockRewardController{}
		rewards.On("UpdateCost", mock.Anything, configID, 250).Return(&entities.CampaignGamificationConfig{ID: configID}, nil)

		cost := mustJSON(t, map[string]any{"configId": configID, "cost": 250})
		require.NoError(t, NewRewardHandler(rewards).HandleCostUpdated(context.Background(), cost))
		rewards.AssertExpectations(t)
	})

	t.Run("cost update without a cost is dropped", func(t *testing.T) {
		rewards := &mockRewardController{}

		require.NoError(t, NewRewardHandler(rewards).HandleCostUpdated(context.Background(), data))
		rewards.AssertNotCalled(t, "UpdateCost", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown config is dropped", func(t *testing.T) {
		rewards := &mockRewardController{}
		rewards.On("Enable", mock.Anything, configID).Return(nil, entities.ErrConfigNotFound)

		assert.NoError(t, NewRewardHandler(rewards).HandleEnabled(context.Background(), data))
	})

	t.Run("twitch failures are redelivered", func(t *testing.T) {
		rewards := &mockRewardController{}
		rewards.On("Disable", mock.Anything, configID).Return(nil, errors.New("helix 503"))

		assert.Error(t, NewRewardHandler(rewards).HandleDisabled(context.Background(), data))
	})
}
