package testhelpers

import (
	"context"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockFoundryCommandService is a mock implementation of FoundryCommandService
type MockFoundryCommandService struct {
	mock.Mock
}

func (m *MockFoundryCommandService) SendChatMessage(ctx context.Context, connectionID, content, speaker string) interfaces.CommandResult {
	args := m.Called(ctx, connectionID, content, speaker)
	return args.Get(0).(interfaces.CommandResult)
}

func (m *MockFoundryCommandService) ModifyActor(ctx context.Context, connectionID, actorID string, updates map[string]any) interfaces.CommandResult {
	args := m.Called(ctx, connectionID, actorID, updates)
	return args.Get(0).(interfaces.CommandResult)
}

func (m *MockFoundryCommandService) InvertLastRoll(ctx context.Context, connectionID string, req interfaces.InvertRollRequest) interfaces.CommandResult {
	args := m.Called(ctx, connectionID, req)
	return args.Get(0).(interfaces.CommandResult)
}

func (m *MockFoundryCommandService) ApplySpellEffect(ctx context.Context, connectionID string, req interfaces.SpellEffectRequest) interfaces.CommandResult {
	args := m.Called(ctx, connectionID, req)
	return args.Get(0).(interfaces.CommandResult)
}

func (m *MockFoundryCommandService) ApplyMonsterEffect(ctx context.Context, connectionID string, req interfaces.MonsterEffectRequest) interfaces.CommandResult {
	args := m.Called(ctx, connectionID, req)
	return args.Get(0).(interfaces.CommandResult)
}

func (m *MockFoundryCommandService) ExecuteCustom(ctx context.Context, connectionID, command string, params map[string]any) interfaces.CommandResult {
	args := m.Called(ctx, connectionID, command, params)
	return args.Get(0).(interfaces.CommandResult)
}

func (m *MockFoundryCommandService) IsConnected(connectionID string) bool {
	args := m.Called(connectionID)
	return args.Bool(0)
}

// MockRewardClient is a mock implementation of RewardClient
type MockRewardClient struct {
	mock.Mock
}

func (m *MockRewardClient) CreateCustomReward(ctx context.Context, broadcasterID string, req interfaces.CustomRewardRequest) (*interfaces.CustomReward, error) {
	args := m.Called(ctx, broadcasterID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.CustomReward), args.Error(1)
}

func (m *MockRewardClient) UpdateCustomReward(ctx context.Context, broadcasterID, rewardID string, cost int) error {
	args := m.Called(ctx, broadcasterID, rewardID, cost)
	return args.Error(0)
}

func (m *MockRewardClient) DeleteCustomReward(ctx context.Context, broadcasterID, rewardID string) error {
	args := m.Called(ctx, broadcasterID, rewardID)
	return args.Error(0)
}

func (m *MockRewardClient) UpdateRedemptionStatus(ctx context.Context, broadcasterID, rewardID, redemptionID, status string) error {
	args := m.Called(ctx, broadcasterID, rewardID, redemptionID, status)
	return args.Error(0)
}

// MockEventSubClient is a mock implementation of EventSubClient
type MockEventSubClient struct {
	mock.Mock
}

func (m *MockEventSubClient) CreateEventSubSubscription(ctx context.Context, subType, broadcasterID string) (*entities.RemoteSubscription, error) {
	args := m.Called(ctx, subType, broadcasterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RemoteSubscription), args.Error(1)
}

func (m *MockEventSubClient) ListEventSubSubscriptions(ctx context.Context, broadcasterID string) ([]entities.RemoteSubscription, error) {
	args := m.Called(ctx, broadcasterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RemoteSubscription), args.Error(1)
}

func (m *MockEventSubClient) DeleteEventSubSubscription(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, broadcasterID string) (*interfaces.TokenInfo, error) {
	args := m.Called(ctx, broadcasterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TokenInfo), args.Error(1)
}

// MockViewerCounter is a mock implementation of ViewerCounter
type MockViewerCounter struct {
	mock.Mock
}

func (m *MockViewerCounter) GetViewerCount(ctx context.Context, broadcasterID string) (int, error) {
	args := m.Called(ctx, broadcasterID)
	return args.Int(0), args.Error(1)
}

// MockTwitchChat is a mock implementation of TwitchChat
type MockTwitchChat struct {
	mock.Mock
}

func (m *MockTwitchChat) SendChatMessage(ctx context.Context, broadcasterID, message string) error {
	args := m.Called(ctx, broadcasterID, message)
	return args.Error(0)
}

// MockChatNotifier is a mock implementation of ChatNotifier
type MockChatNotifier struct {
	mock.Mock
}

func (m *MockChatNotifier) NotifyCampaign(ctx context.Context, campaignID uuid.UUID, streamerID *uuid.UUID, message string) error {
	args := m.Called(ctx, campaignID, streamerID, message)
	return args.Error(0)
}

// MockStreamerContextProvider is a mock implementation of StreamerContextProvider
type MockStreamerContextProvider struct {
	mock.Mock
}

func (m *MockStreamerContextProvider) GetStreamerContext(ctx context.Context, campaignID uuid.UUID, streamerID *uuid.UUID) (entities.StreamerContext, error) {
	args := m.Called(ctx, campaignID, streamerID)
	return args.Get(0).(entities.StreamerContext), args.Error(1)
}

// MockCooldownCache is a mock implementation of CooldownCache
type MockCooldownCache struct {
	mock.Mock
}

func (m *MockCooldownCache) SetCooldown(ctx context.Context, key entities.InstanceKey, until time.Time) error {
	args := m.Called(ctx, key, until)
	return args.Error(0)
}

func (m *MockCooldownCache) IsOnCooldown(ctx context.Context, key entities.InstanceKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
