package testhelpers

import (
	"context"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockGamificationEventRepository is a mock implementation of GamificationEventRepository
type MockGamificationEventRepository struct {
	mock.Mock
}

func (m *MockGamificationEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.GamificationEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GamificationEvent), args.Error(1)
}

func (m *MockGamificationEventRepository) GetBySlug(ctx context.Context, slug string) (*entities.GamificationEvent, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GamificationEvent), args.Error(1)
}

func (m *MockGamificationEventRepository) GetAll(ctx context.Context) ([]*entities.GamificationEvent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.GamificationEvent), args.Error(1)
}

func (m *MockGamificationEventRepository) Create(ctx context.Context, event *entities.GamificationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockCampaignGamificationConfigRepository is a mock implementation of CampaignGamificationConfigRepository
type MockCampaignGamificationConfigRepository struct {
	mock.Mock
}

func (m *MockCampaignGamificationConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.CampaignGamificationConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CampaignGamificationConfig), args.Error(1)
}

func (m *MockCampaignGamificationConfigRepository) GetByCampaignAndEvent(ctx context.Context, campaignID, eventID uuid.UUID) (*entities.CampaignGamificationConfig, error) {
	args := m.Called(ctx, campaignID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CampaignGamificationConfig), args.Error(1)
}

func (m *MockCampaignGamificationConfigRepository) GetEnabledByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.CampaignGamificationConfig, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CampaignGamificationConfig), args.Error(1)
}

func (m *MockCampaignGamificationConfigRepository) GetByTwitchRewardID(ctx context.Context, rewardID string) (*entities.CampaignGamificationConfig, error) {
	args := m.Called(ctx, rewardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CampaignGamificationConfig), args.Error(1)
}

func (m *MockCampaignGamificationConfigRepository) GetByRewardStatus(ctx context.Context, status entities.RewardStatus) ([]*entities.CampaignGamificationConfig, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CampaignGamificationConfig), args.Error(1)
}

func (m *MockCampaignGamificationConfigRepository) Create(ctx context.Context, config *entities.CampaignGamificationConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockCampaignGamificationConfigRepository) Update(ctx context.Context, config *entities.CampaignGamificationConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

// MockStreamerRewardRepository is a mock implementation of StreamerRewardRepository
type MockStreamerRewardRepository struct {
	mock.Mock
}

func (m *MockStreamerRewardRepository) GetByConfig(ctx context.Context, configID uuid.UUID) ([]*entities.StreamerReward, error) {
	args := m.Called(ctx, configID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StreamerReward), args.Error(1)
}

func (m *MockStreamerRewardRepository) GetByTwitchRewardID(ctx context.Context, rewardID string) (*entities.StreamerReward, error) {
	args := m.Called(ctx, rewardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StreamerReward), args.Error(1)
}

func (m *MockStreamerRewardRepository) GetByRewardStatus(ctx context.Context, status entities.RewardStatus) ([]*entities.StreamerReward, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StreamerReward), args.Error(1)
}

func (m *MockStreamerRewardRepository) GetActiveByStreamer(ctx context.Context, streamerID uuid.UUID) ([]*entities.StreamerReward, error) {
	args := m.Called(ctx, streamerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StreamerReward), args.Error(1)
}

func (m *MockStreamerRewardRepository) Create(ctx context.Context, reward *entities.StreamerReward) error {
	args := m.Called(ctx, reward)
	return args.Error(0)
}

func (m *MockStreamerRewardRepository) Update(ctx context.Context, reward *entities.StreamerReward) error {
	args := m.Called(ctx, reward)
	return args.Error(0)
}

// MockCampaignRepository is a mock implementation of CampaignRepository
type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) GetMemberStreamers(ctx context.Context, campaignID uuid.UUID) ([]*entities.Streamer, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Streamer), args.Error(1)
}

// MockStreamerRepository is a mock implementation of StreamerRepository
type MockStreamerRepository struct {
	mock.Mock
}

func (m *MockStreamerRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Streamer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Streamer), args.Error(1)
}

func (m *MockStreamerRepository) GetByTwitchUserID(ctx context.Context, twitchUserID string) (*entities.Streamer, error) {
	args := m.Called(ctx, twitchUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Streamer), args.Error(1)
}

func (m *MockStreamerRepository) GetActive(ctx context.Context) ([]*entities.Streamer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Streamer), args.Error(1)
}

// MockPreFlightReportRepository is a mock implementation of PreFlightReportRepository
type MockPreFlightReportRepository struct {
	mock.Mock
}

func (m *MockPreFlightReportRepository) Create(ctx context.Context, report *entities.PreFlightReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockPreFlightReportRepository) GetLatestByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*entities.PreFlightReport, error) {
	args := m.Called(ctx, campaignID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PreFlightReport), args.Error(1)
}

// MockEventSubSubscriptionRepository is a mock implementation of EventSubSubscriptionRepository
type MockEventSubSubscriptionRepository struct {
	mock.Mock
}

func (m *MockEventSubSubscriptionRepository) GetByStreamer(ctx context.Context, streamerID uuid.UUID) ([]*entities.EventSubSubscription, error) {
	args := m.Called(ctx, streamerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EventSubSubscription), args.Error(1)
}

func (m *MockEventSubSubscriptionRepository) GetByStatus(ctx context.Context, status entities.SubscriptionStatus) ([]*entities.EventSubSubscription, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EventSubSubscription), args.Error(1)
}

func (m *MockEventSubSubscriptionRepository) Create(ctx context.Context, sub *entities.EventSubSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockEventSubSubscriptionRepository) Update(ctx context.Context, sub *entities.EventSubSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockEventSubSubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCriticalityRuleRepository is a mock implementation of CriticalityRuleRepository
type MockCriticalityRuleRepository struct {
	mock.Mock
}

func (m *MockCriticalityRuleRepository) GetByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.CampaignCriticalityRule, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CampaignCriticalityRule), args.Error(1)
}

// MockItemCategoryRuleRepository is a mock implementation of ItemCategoryRuleRepository
type MockItemCategoryRuleRepository struct {
	mock.Mock
}

func (m *MockItemCategoryRuleRepository) GetByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.CampaignItemCategoryRule, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CampaignItemCategoryRule), args.Error(1)
}

// MockGamificationInstanceRepository is a mock implementation of GamificationInstanceRepository
type MockGamificationInstanceRepository struct {
	mock.Mock
}

func (m *MockGamificationInstanceRepository) Create(ctx context.Context, instance *entities.GamificationInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockGamificationInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.GamificationInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GamificationInstance), args.Error(1)
}

func (m *MockGamificationInstanceRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.GamificationInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GamificationInstance), args.Error(1)
}

func (m *MockGamificationInstanceRepository) GetOpenByKey(ctx context.Context, key entities.InstanceKey) (*entities.GamificationInstance, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GamificationInstance), args.Error(1)
}

func (m *MockGamificationInstanceRepository) GetOpenByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*entities.GamificationInstance, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.GamificationInstance), args.Error(1)
}

func (m *MockGamificationInstanceRepository) GetLatestCooldownEnd(ctx context.Context, key entities.InstanceKey) (*time.Time, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockGamificationInstanceRepository) GetExpirable(ctx context.Context, now time.Time) ([]*entities.GamificationInstance, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.GamificationInstance), args.Error(1)
}

func (m *MockGamificationInstanceRepository) GetCampaignsWithArmed(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockGamificationInstanceRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	args := m.Called(ctx, id, progress)
	return args.Error(0)
}

func (m *MockGamificationInstanceRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []entities.InstanceStatus, to entities.InstanceStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockGamificationInstanceRepository) ClaimForExecution(ctx context.Context, id uuid.UUID, completedAt time.Time, cooldownEndsAt *time.Time) (bool, error) {
	args := m.Called(ctx, id, completedAt, cooldownEndsAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockGamificationInstanceRepository) RecordExecution(ctx context.Context, id uuid.UUID, status entities.ExecutionStatus, executedAt time.Time, result *entities.ResultData) error {
	args := m.Called(ctx, id, status, executedAt, result)
	return args.Error(0)
}

// MockGamificationContributionRepository is a mock implementation of GamificationContributionRepository
type MockGamificationContributionRepository struct {
	mock.Mock
}

func (m *MockGamificationContributionRepository) Create(ctx context.Context, contribution *entities.GamificationContribution) (bool, error) {
	args := m.Called(ctx, contribution)
	return args.Bool(0), args.Error(1)
}

func (m *MockGamificationContributionRepository) GetByRedemptionID(ctx context.Context, redemptionID string) (*entities.GamificationContribution, error) {
	args := m.Called(ctx, redemptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GamificationContribution), args.Error(1)
}

func (m *MockGamificationContributionRepository) GetByInstance(ctx context.Context, instanceID uuid.UUID) ([]*entities.GamificationContribution, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.GamificationContribution), args.Error(1)
}

func (m *MockGamificationContributionRepository) MarkRefunded(ctx context.Context, id uuid.UUID, refundedAt time.Time) error {
	args := m.Called(ctx, id, refundedAt)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTransactionalEventPublisher is a mock implementation of TransactionalEventPublisher
type MockTransactionalEventPublisher struct {
	mock.Mock
}

func (m *MockTransactionalEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Discard() {
	m.Called()
}
