package application

import (
	"context"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockDiceRollProcessor struct{ mock.Mock }

func (m *mockDiceRollProcessor) HandleDiceRoll(ctx context.Context, roll *entities.DiceRoll, tctx entities.TriggerContext) ([]*entities.GamificationInstance, error) {
	args := m.Called(ctx, roll, tctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.GamificationInstance), args.Error(1)
}

type mockRedemptionProcessor struct{ mock.Mock }

func (m *mockRedemptionProcessor) HandleRedemption(ctx context.Context, redemption entities.ChannelPointRedemption) (*services.ContributionOutcome, error) {
	args := m.Called(ctx, redemption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ContributionOutcome), args.Error(1)
}

func (m *mockRedemptionProcessor) HandleRefund(ctx context.Context, redemptionID string) error {
	return m.Called(ctx, redemptionID).Error(0)
}

type mockArmedExecutor struct{ mock.Mock }

func (m *mockArmedExecutor) ExecuteArmedInstances(ctx context.Context, campaignID uuid.UUID) (int, error) {
	args := m.Called(ctx, campaignID)
	return args.Int(0), args.Error(1)
}

type mockInstanceExpirer struct{ mock.Mock }

func (m *mockInstanceExpirer) CheckAndExpireInstances(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockOrphanFinder struct{ mock.Mock }

func (m *mockOrphanFinder) FindOrphansDueForRetry(ctx context.Context, now time.Time) ([]*entities.CampaignGamificationConfig, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CampaignGamificationConfig), args.Error(1)
}

func (m *mockOrphanFinder) FindStreamerRewardsDueForRetry(ctx context.Context, now time.Time) ([]*entities.StreamerReward, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StreamerReward), args.Error(1)
}

type mockOrphanRetrier struct{ mock.Mock }

func (m *mockOrphanRetrier) RetryOrphanDeletion(ctx context.Context, config *entities.CampaignGamificationConfig) (bool, error) {
	args := m.Called(ctx, config)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrphanRetrier) RetryStreamerRewardDeletion(ctx context.Context, reward *entities.StreamerReward) (bool, error) {
	args := m.Called(ctx, reward)
	return args.Bool(0), args.Error(1)
}

type mockReconciler struct{ mock.Mock }

func (m *mockReconciler) ReconcileAll(ctx context.Context) (*services.ReconcileResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReconcileResult), args.Error(1)
}

type mockPreFlightRunner struct{ mock.Mock }

func (m *mockPreFlightRunner) Run(ctx context.Context, campaignID uuid.UUID, eventType string, mode entities.PreFlightMode, triggeredBy string) (*entities.PreFlightReport, error) {
	args := m.Called(ctx, campaignID, eventType, mode, triggeredBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PreFlightReport), args.Error(1)
}

type mockSubjectPublisher struct{ mock.Mock }

func (m *mockSubjectPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return m.Called(ctx, subject, data).Error(0)
}

type mockTriggerProcessor struct{ mock.Mock }

func (m *mockTriggerProcessor) HandleTriggerBySlug(ctx context.Context, slug string, data any, tctx entities.TriggerContext) (*entities.GamificationInstance, error) {
	args := m.Called(ctx, slug, data, tctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GamificationInstance), args.Error(1)
}

type mockInstanceCanceller struct{ mock.Mock }

func (m *mockInstanceCanceller) CancelInstance(ctx context.Context, instanceID, campaignID uuid.UUID, reason string) error {
	return m.Called(ctx, instanceID, campaignID, reason).Error(0)
}

type mockRewardController struct{ mock.Mock }

func (m *mockRewardController) result(args mock.Arguments) (*entities.CampaignGamificationConfig, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CampaignGamificationConfig), args.Error(1)
}

func (m *mockRewardController) Enable(ctx context.Context, configID uuid.UUID) (*entities.CampaignGamificationConfig, error) {
	return m.result(m.Called(ctx, configID))
}

func (m *mockRewardController) Disable(ctx context.Context, configID uuid.UUID) (*entities.CampaignGamificationConfig, error) {
	return m.result(m.Called(ctx, configID))
}

func (m *mockRewardController) UpdateCost(ctx context.Context, configID uuid.UUID, cost int) (*entities.CampaignGamificationConfig, error) {
	return m.result(m.Called(ctx, configID, cost))
}
