package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/events"
	"tumulte/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInstanceManager_CreateInstance(t *testing.T) {
	t.Parallel()

	t.Run("creates active instance sized from minimum objective", func(t *testing.T) {
		t.Parallel()
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{})
		m := newManager(factory)

		instance, created, err := m.CreateInstance(context.Background(), newTestEvent(3), newTestConfig(), nil, nil)

		require.NoError(t, err)
		require.NotNil(t, instance)
		assert.True(t, created)
		assert.Equal(t, entities.InstanceStatusActive, instance.Status)
		assert.Equal(t, 3, instance.ObjectiveTarget)
		assert.Equal(t, 300*time.Second, instance.ExpiresAt.Sub(instance.StartsAt))
		assert.Len(t, factory.Publisher.OfType(events.EventTypeInstanceCreated), 1)
	})

	t.Run("returns existing open instance for the same key", func(t *testing.T) {
		t.Parallel()
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{})
		m := newManager(factory)
		ctx := context.Background()

		first, created, err := m.CreateInstance(ctx, newTestEvent(3), newTestConfig(), nil, nil)
		require.NoError(t, err)
		require.True(t, created)

		second, created, err := m.CreateInstance(ctx, newTestEvent(3), newTestConfig(), nil, nil)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, factory.Repos.Instances.(*testhelpers.InMemoryInstanceRepository).All(), 1)
	})

	t.Run("group events ignore the streamer", func(t *testing.T) {
		t.Parallel()
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{})
		m := newManager(factory)
		ctx := context.Background()
		owner, member := testOwnerID, testMemberID

		first, _, err := m.CreateInstance(ctx, newTestEvent(3), newTestConfig(), nil, &owner)
		require.NoError(t, err)
		second, created, err := m.CreateInstance(ctx, newTestEvent(3), newTestConfig(), nil, &member)
		require.NoError(t, err)

		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Nil(t, first.StreamerID)
	})

	t.Run("individual events get one instance per streamer", func(t *testing.T) {
		t.Parallel()
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{})
		m := newManager(factory)
		ctx := context.Background()
		event := newTestEvent(3)
		event.Type = entities.EventTypeIndividual
		owner, member := testOwnerID, testMemberID

		first, _, err := m.CreateInstance(ctx, event, newTestConfig(), nil, &owner)
		require.NoError(t, err)
		second, created, err := m.CreateInstance(ctx, event, newTestConfig(), nil, &member)
		require.NoError(t, err)

		assert.True(t, created)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("replaces a stale instance the sweep has not reached", func(t *testing.T) {
		t.Parallel()
		stale := newOpenInstance(3, time.Now().Add(-time.Minute))
		repo := testhelpers.NewInMemoryInstanceRepository(stale)
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{Instances: repo})
		m := newManager(factory)

		instance, created, err := m.CreateInstance(context.Background(), newTestEvent(3), newTestConfig(), nil, nil)

		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, stale.ID, instance.ID)
		old, _ := repo.GetByID(context.Background(), stale.ID)
		assert.Equal(t, entities.InstanceStatusExpired, old.Status)
	})

	t.Run("key on cooldown yields no instance", func(t *testing.T) {
		t.Parallel()
		done := newOpenInstance(3, time.Now().Add(-time.Hour))
		done.Status = entities.InstanceStatusCompleted
		cooldownEnd := time.Now().Add(time.Hour)
		done.CooldownEndsAt = &cooldownEnd
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
			Instances: testhelpers.NewInMemoryInstanceRepository(done),
		})
		m := newManager(factory)

		instance, created, err := m.CreateInstance(context.Background(), newTestEvent(3), newTestConfig(), nil, nil)

		require.NoError(t, err)
		assert.Nil(t, instance)
		assert.False(t, created)
	})

	t.Run("cooldown cache short-circuits the lookup", func(t *testing.T) {
		t.Parallel()
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{})
		cache := &testhelpers.MockCooldownCache{}
		cache.On("IsOnCooldown", mock.Anything, mock.Anything).Return(true, nil)
		m := NewInstanceManager(factory, NewViewerObjectiveCalculator(), nil, cache, nil)

		instance, _, err := m.CreateInstance(context.Background(), newTestEvent(3), newTestConfig(), nil, nil)

		require.NoError(t, err)
		assert.Nil(t, instance)
		cache.AssertExpectations(t)
	})

	t.Run("objective scales with audience", func(t *testing.T) {
		t.Parallel()
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{})
		audience := &testhelpers.MockStreamerContextProvider{}
		audience.On("GetStreamerContext", mock.Anything, testCampaignID, (*uuid.UUID)(nil)).
			Return(entities.StreamerContext{ViewerCount: 250}, nil)
		m := NewInstanceManager(factory, NewViewerObjectiveCalculator(), audience, nil, nil)
		event := newTestEvent(3)
		event.DefaultObjectiveCoefficient = 0.1

		instance, _, err := m.CreateInstance(context.Background(), event, newTestConfig(), nil, nil)

		require.NoError(t, err)
		assert.Equal(t, 25, instance.ObjectiveTarget)
	})

	t.Run("misconfigured objective creates an instance that never arms", func(t *testing.T) {
		t.Parallel()
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{})
		m := newManager(factory)

		instance, created, err := m.CreateInstance(context.Background(), newTestEvent(0), newTestConfig(), nil, nil)

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, 0, instance.ObjectiveTarget)

		outcome, err := m.Contribute(context.Background(), instance.ID, newTestEvent(0), newTestConfig(), contribution("r1"))
		require.NoError(t, err)
		assert.False(t, outcome.Armed)
		assert.Equal(t, entities.InstanceStatusActive, outcome.Instance.Status)
	})
}

func TestInstanceManager_Contribute(t *testing.T) {
	t.Parallel()

	t.Run("duplicate redemptions count once", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(3, time.Now().Add(time.Hour))
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
			Instances: testhelpers.NewInMemoryInstanceRepository(instance),
		})
		m := newManager(factory)
		ctx := context.Background()

		var outcomes []*ContributionOutcome
		for _, id := range []string{"A", "A", "B"} {
			outcome, err := m.Contribute(ctx, instance.ID, newTestEvent(3), newTestConfig(), contribution(id))
			require.NoError(t, err)
			outcomes = append(outcomes, outcome)
		}

		assert.True(t, outcomes[0].Accepted)
		assert.False(t, outcomes[1].Accepted)
		assert.True(t, outcomes[2].Accepted)
		assert.Equal(t, 2, outcomes[2].Instance.CurrentProgress)
		assert.Equal(t, entities.InstanceStatusActive, outcomes[2].Instance.Status)
	})

	t.Run("reaching the objective arms the instance", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(2, time.Now().Add(time.Hour))
		repo := testhelpers.NewInMemoryInstanceRepository(instance)
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{Instances: repo})
		m := newManager(factory)
		ctx := context.Background()

		first, err := m.Contribute(ctx, instance.ID, newTestEvent(2), newTestConfig(), contribution("r1"))
		require.NoError(t, err)
		assert.False(t, first.Armed)

		second, err := m.Contribute(ctx, instance.ID, newTestEvent(2), newTestConfig(), contribution("r2"))
		require.NoError(t, err)
		assert.True(t, second.Armed)

		stored, _ := repo.GetByID(ctx, instance.ID)
		assert.Equal(t, entities.InstanceStatusArmed, stored.Status)
		assert.NotNil(t, stored.ArmedAt)
		assert.Len(t, factory.Publisher.OfType(events.EventTypeInstanceArmed), 1)
		assert.Len(t, factory.Publisher.OfType(events.EventTypeInstanceProgress), 2)
	})

	t.Run("armed instance is never re-armed", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(1, time.Now().Add(time.Hour))
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
			Instances: testhelpers.NewInMemoryInstanceRepository(instance),
		})
		m := newManager(factory)
		ctx := context.Background()

		first, err := m.Contribute(ctx, instance.ID, newTestEvent(1), newTestConfig(), contribution("r1"))
		require.NoError(t, err)
		second, err := m.Contribute(ctx, instance.ID, newTestEvent(1), newTestConfig(), contribution("r2"))
		require.NoError(t, err)

		assert.True(t, first.Armed)
		assert.False(t, second.Armed)
		assert.Equal(t, 2, second.Instance.CurrentProgress)
	})

	t.Run("concurrent contributions arm exactly once", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(3, time.Now().Add(time.Hour))
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
			Instances: testhelpers.NewInMemoryInstanceRepository(instance),
		})
		m := newManager(factory)

		var wg sync.WaitGroup
		var mu sync.Mutex
		armed := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcome, err := m.Contribute(context.Background(), instance.ID, newTestEvent(3), newTestConfig(), contribution(fmt.Sprintf("r%d", i)))
				if assert.NoError(t, err) && outcome.Armed {
					mu.Lock()
					armed++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, armed)
		assert.Len(t, factory.Publisher.OfType(events.EventTypeInstanceArmed), 1)
	})

	t.Run("unknown instance", func(t *testing.T) {
		t.Parallel()
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{})
		m := newManager(factory)

		_, err := m.Contribute(context.Background(), uuid.New(), newTestEvent(3), newTestConfig(), contribution("r1"))

		assert.ErrorIs(t, err, entities.ErrInstanceNotFound)
	})

	t.Run("instance of another campaign", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(3, time.Now().Add(time.Hour))
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
			Instances: testhelpers.NewInMemoryInstanceRepository(instance),
		})
		m := newManager(factory)
		input := contribution("r1")
		input.CampaignID = uuid.New()

		_, err := m.Contribute(context.Background(), instance.ID, newTestEvent(3), newTestConfig(), input)

		assert.ErrorIs(t, err, entities.ErrCampaignMismatch)
	})

	t.Run("past deadline expires instead of contributing", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(3, time.Now().Add(-time.Second))
		repo := testhelpers.NewInMemoryInstanceRepository(instance)
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{Instances: repo})
		m := newManager(factory)

		_, err := m.Contribute(context.Background(), instance.ID, newTestEvent(3), newTestConfig(), contribution("r1"))

		assert.ErrorIs(t, err, entities.ErrInstanceTerminal)
		stored, _ := repo.GetByID(context.Background(), instance.ID)
		assert.Equal(t, entities.InstanceStatusExpired, stored.Status)
		assert.Len(t, factory.Publisher.OfType(events.EventTypeInstanceExpired), 1)
	})

	t.Run("terminal instance rejects contributions", func(t *testing.T) {
		t.Parallel()
		instance := newOpenInstance(3, time.Now().Add(time.Hour))
		instance.Status = entities.InstanceStatusCancelled
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
			Instances: testhelpers.NewInMemoryInstanceRepository(instance),
		})
		m := newManager(factory)

		_, err := m.Contribute(context.Background(), instance.ID, newTestEvent(3), newTestConfig(), contribution("r1"))

		assert.ErrorIs(t, err, entities.ErrInstanceTerminal)
	})
}

func TestInstanceManager_RefundContribution(t *testing.T) {
	t.Parallel()

	instance := newOpenInstance(5, time.Now().Add(time.Hour))
	repo := testhelpers.NewInMemoryInstanceRepository(instance)
	eventRepo, configRepo := refundLookups(5)
	factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
		Instances: repo,
		Events:    eventRepo,
		Configs:   configRepo,
	})
	m := newManager(factory)
	ctx := context.Background()

	for _, id := range []string{"r1", "r2"} {
		_, err := m.Contribute(ctx, instance.ID, newTestEvent(5), newTestConfig(), contribution(id))
		require.NoError(t, err)
	}

	refunded, err := m.RefundContribution(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, refunded)
	assert.True(t, refunded.Refunded)

	stored, _ := repo.GetByID(ctx, instance.ID)
	assert.Equal(t, 1, stored.CurrentProgress)

	again, err := m.RefundContribution(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, again)

	unknown, err := m.RefundContribution(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, unknown)
	assert.Len(t, factory.Publisher.OfType(events.EventTypeContributionRefund), 1)
}

func TestInstanceManager_RefundContributionUsesCalculator(t *testing.T) {
	t.Parallel()

	instance := newOpenInstance(10, time.Now().Add(time.Hour))
	repo := testhelpers.NewInMemoryInstanceRepository(instance)
	eventRepo, configRepo := refundLookups(10)
	factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
		Instances: repo,
		Events:    eventRepo,
		Configs:   configRepo,
	})
	m := NewInstanceManager(factory, amountWeightedCalculator{}, nil, nil, nil)
	ctx := context.Background()

	for _, id := range []string{"r1", "r2"} {
		input := contribution(id)
		input.Amount = 3
		_, err := m.Contribute(ctx, instance.ID, newTestEvent(10), newTestConfig(), input)
		require.NoError(t, err)
	}
	stored, _ := repo.GetByID(ctx, instance.ID)
	require.Equal(t, 6, stored.CurrentProgress)

	_, err := m.RefundContribution(ctx, "r1")
	require.NoError(t, err)

	stored, _ = repo.GetByID(ctx, instance.ID)
	assert.Equal(t, 3, stored.CurrentProgress)
}

// amountWeightedCalculator counts contribution amounts instead of redemptions
type amountWeightedCalculator struct{}

func (amountWeightedCalculator) Calculate(
	_ *entities.GamificationEvent,
	_ *entities.CampaignGamificationConfig,
	contributions []*entities.GamificationContribution,
	streamerCtx entities.StreamerContext,
) (entities.ObjectiveProgress, error) {
	progress := 0
	for _, c := range contributions {
		if !c.Refunded {
			progress += c.Amount
		}
	}
	return entities.ObjectiveProgress{
		Progress:     progress,
		Objective:    streamerCtx.FixedObjective,
		ObjectiveMet: progress >= streamerCtx.FixedObjective,
	}, nil
}

func refundLookups(minimumObjective int) (*testhelpers.MockGamificationEventRepository, *testhelpers.MockCampaignGamificationConfigRepository) {
	eventRepo := &testhelpers.MockGamificationEventRepository{}
	eventRepo.On("GetByID", mock.Anything, testEventID).Return(newTestEvent(minimumObjective), nil)
	configRepo := &testhelpers.MockCampaignGamificationConfigRepository{}
	configRepo.On("GetByCampaignAndEvent", mock.Anything, testCampaignID, testEventID).Return(newTestConfig(), nil)
	return eventRepo, configRepo
}

func TestInstanceManager_ClaimForExecution(t *testing.T) {
	t.Parallel()

	instance := newOpenInstance(1, time.Now().Add(time.Hour))
	instance.Status = entities.InstanceStatusArmed
	repo := testhelpers.NewInMemoryInstanceRepository(instance)
	factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{Instances: repo})
	cache := &testhelpers.MockCooldownCache{}
	cache.On("SetCooldown", mock.Anything, instance.Key(), mock.AnythingOfType("time.Time")).Return(nil).Once()
	cache.On("IsOnCooldown", mock.Anything, instance.Key()).Return(false, nil)
	m := NewInstanceManager(factory, NewViewerObjectiveCalculator(), nil, cache, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := m.ClaimForExecution(ctx, copyOf(instance), 10*time.Minute)
			if assert.NoError(t, err) && claimed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	stored, _ := repo.GetByID(ctx, instance.ID)
	assert.Equal(t, entities.InstanceStatusCompleted, stored.Status)
	require.NotNil(t, stored.CooldownEndsAt)
	cache.AssertExpectations(t)

	onCooldown, err := m.IsOnCooldown(ctx, instance.Key())
	require.NoError(t, err)
	assert.True(t, onCooldown)
}

func TestInstanceManager_Cancel(t *testing.T) {
	t.Parallel()

	instance := newOpenInstance(3, time.Now().Add(time.Hour))
	factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{
		Instances: testhelpers.NewInMemoryInstanceRepository(instance),
	})
	m := newManager(factory)
	ctx := context.Background()

	assert.ErrorIs(t, m.Cancel(ctx, instance.ID, uuid.New(), "wrong campaign"), entities.ErrCampaignMismatch)
	assert.ErrorIs(t, m.Cancel(ctx, uuid.New(), testCampaignID, "missing"), entities.ErrInstanceNotFound)

	require.NoError(t, m.Cancel(ctx, instance.ID, testCampaignID, "gm stopped it"))
	assert.ErrorIs(t, m.Cancel(ctx, instance.ID, testCampaignID, "twice"), entities.ErrInstanceTerminal)

	cancelled := factory.Publisher.OfType(events.EventTypeInstanceCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "gm stopped it", cancelled[0].(events.InstanceCancelledEvent).Reason)
}

func TestInstanceManager_CheckAndExpireInstances(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Minute)
	expiredActive := newOpenInstance(3, past)
	expiredArmed := newOpenInstance(3, past)
	expiredArmed.Status = entities.InstanceStatusArmed
	live := newOpenInstance(3, time.Now().Add(time.Hour))
	completed := newOpenInstance(3, past)
	completed.Status = entities.InstanceStatusCompleted

	repo := testhelpers.NewInMemoryInstanceRepository(expiredActive, expiredArmed, live, completed)
	factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{Instances: repo})
	metrics := &recordingMetrics{}
	m := NewInstanceManager(factory, NewViewerObjectiveCalculator(), nil, nil, metrics)
	ctx := context.Background()

	count, err := m.CheckAndExpireInstances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	again, err := m.CheckAndExpireInstances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	stored, _ := repo.GetByID(ctx, live.ID)
	assert.Equal(t, entities.InstanceStatusActive, stored.Status)
	stored, _ = repo.GetByID(ctx, completed.ID)
	assert.Equal(t, entities.InstanceStatusCompleted, stored.Status)
	assert.Len(t, factory.Publisher.OfType(events.EventTypeInstanceExpired), 2)
	assert.Equal(t, 2, metrics.expired)
}

func copyOf(instance *entities.GamificationInstance) *entities.GamificationInstance {
	c := *instance
	return &c
}

// recordingMetrics captures metric calls that tests assert on
type recordingMetrics struct {
	mu        sync.Mutex
	expired   int
	orphaned  int
	actions   map[string]int
	evaluated map[string]int
}

func (r *recordingMetrics) RecordTriggerEvaluated(triggerType string, fired bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.evaluated == nil {
		r.evaluated = make(map[string]int)
	}
	r.evaluated[fmt.Sprintf("%s:%t", triggerType, fired)]++
}

func (r *recordingMetrics) RecordContribution(bool) {}

func (r *recordingMetrics) RecordActionExecution(actionType string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actions == nil {
		r.actions = make(map[string]int)
	}
	r.actions[fmt.Sprintf("%s:%t", actionType, success)]++
}

func (r *recordingMetrics) RecordInstancesExpired(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired += count
}

func (r *recordingMetrics) RecordRewardOrphaned() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orphaned++
}
