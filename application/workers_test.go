package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/services"
	"tumulte/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func TestExpiryWorker_Sweep(t *testing.T) {
	expirer := &mockInstanceExpirer{}
	expirer.On("CheckAndExpireInstances", mock.Anything).Return(2, nil).Once()

	NewExpiryWorker(expirer, time.Second).Sweep(context.Background())
	expirer.AssertExpectations(t)
}

func TestExpiryWorker_StartStops(t *testing.T) {
	called := make(chan struct{}, 1)
	expirer := &mockInstanceExpirer{}
	expirer.On("CheckAndExpireInstances", mock.Anything).Return(0, nil).Run(func(mock.Arguments) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	stop := NewExpiryWorker(expirer, 10*time.Millisecond).Start(context.Background())
	defer stop()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("worker did not sweep")
	}
}

func TestArmedExecutionWorker_Sweep(t *testing.T) {
	armedCampaign := uuid.New()
	failingCampaign := uuid.New()

	instances := testhelpers.NewInMemoryInstanceRepository(
		&entities.GamificationInstance{
			ID:              uuid.New(),
			CampaignID:      armedCampaign,
			EventID:         uuid.New(),
			Status:          entities.InstanceStatusArmed,
			ExecutionStatus: entities.ExecutionStatusPending,
			ExpiresAt:       time.Now().Add(time.Hour),
		},
		&entities.GamificationInstance{
			ID:              uuid.New(),
			CampaignID:      failingCampaign,
			EventID:         uuid.New(),
			Status:          entities.InstanceStatusArmed,
			ExecutionStatus: entities.ExecutionStatusPending,
			ExpiresAt:       time.Now().Add(time.Hour),
		},
		&entities.GamificationInstance{
			ID:              uuid.New(),
			CampaignID:      uuid.New(),
			EventID:         uuid.New(),
			Status:          entities.InstanceStatusActive,
			ExecutionStatus: entities.ExecutionStatusPending,
			ExpiresAt:       time.Now().Add(time.Hour),
		},
	)
	factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{Instances: instances})

	executor := &mockArmedExecutor{}
	executor.On("ExecuteArmedInstances", mock.Anything, armedCampaign).Return(1, nil).Once()
	executor.On("ExecuteArmedInstances", mock.Anything, failingCampaign).Return(0, errors.New("vtt down")).Once()

	NewArmedExecutionWorker(factory, executor, time.Second).Sweep(context.Background())

	executor.AssertExpectations(t)
	executor.AssertNumberOfCalls(t, "ExecuteArmedInstances", 2)
}

func TestOrphanRetryWorker_Sweep(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	config := &entities.CampaignGamificationConfig{ID: uuid.New()}
	reward := &entities.StreamerReward{ID: uuid.New()}

	finder := &mockOrphanFinder{}
	finder.On("FindOrphansDueForRetry", mock.Anything, now).Return([]*entities.CampaignGamificationConfig{config}, nil)
	finder.On("FindStreamerRewardsDueForRetry", mock.Anything, now).Return([]*entities.StreamerReward{reward}, nil)

	retrier := &mockOrphanRetrier{}
	retrier.On("RetryOrphanDeletion", mock.Anything, config).Return(true, nil)
	retrier.On("RetryStreamerRewardDeletion", mock.Anything, reward).Return(false, nil)

	worker := NewOrphanRetryWorker(finder, retrier, time.Minute)
	worker.now = func() time.Time { return now }
	worker.Sweep(context.Background())

	finder.AssertExpectations(t)
	retrier.AssertExpectations(t)
}

func TestOrphanRetryWorker_FinderErrorStillRetriesRewards(t *testing.T) {
	reward := &entities.StreamerReward{ID: uuid.New()}

	finder := &mockOrphanFinder{}
	finder.On("FindOrphansDueForRetry", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	finder.On("FindStreamerRewardsDueForRetry", mock.Anything, mock.Anything).Return([]*entities.StreamerReward{reward}, nil)

	retrier := &mockOrphanRetrier{}
	retrier.On("RetryStreamerRewardDeletion", mock.Anything, reward).Return(true, nil)

	NewOrphanRetryWorker(finder, retrier, time.Minute).Sweep(context.Background())

	retrier.AssertExpectations(t)
	retrier.AssertNotCalled(t, "RetryOrphanDeletion", mock.Anything, mock.Anything)
}

func TestEventSubReconcileWorker_Sweep(t *testing.T) {
	reconciler := &mockReconciler{}
	reconciler.On("ReconcileAll", mock.Anything).Return(&services.ReconcileResult{Created: 2}, errors.New("one streamer failed")).Once()

	NewEventSubReconcileWorker(reconciler, time.Minute).Sweep(context.Background())
	reconciler.AssertExpectations(t)
}
