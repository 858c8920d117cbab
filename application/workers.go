package application

import (
	"context"
	"time"

	"tumulte/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// runEvery calls tick every interval until ctx is done or the returned stop
// function is called
func runEvery(ctx context.Context, name string, interval time.Duration, tick func(ctx context.Context)) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithFields(log.Fields{
			"worker":   name,
			"interval": interval,
		}).Info("Worker started")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.WithField("worker", name).Info("Worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.WithField("worker", name).Info("Worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				tick(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// ExpiryWorker expires instances whose deadline has passed
type ExpiryWorker struct {
	expirer  InstanceExpirer
	interval time.Duration
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(expirer InstanceExpirer, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{expirer: expirer, interval: interval}
}

// Start begins the sweep loop and returns its stop function
func (w *ExpiryWorker) Start(ctx context.Context) func() {
	return runEvery(ctx, "instance_expiry", w.interval, w.Sweep)
}

// Sweep runs one expiry pass
func (w *ExpiryWorker) Sweep(ctx context.Context) {
	expired, err := w.expirer.CheckAndExpireInstances(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to expire instances")
	}
	if expired > 0 {
		log.WithField("count", expired).Info("Expired gamification instances")
	}
}

// ArmedExecutionWorker runs the actions of armed instances that were not
// executed when they armed, such as after a restart or a VTT outage
type ArmedExecutionWorker struct {
	uowFactory interfaces.UnitOfWorkFactory
	executor   ArmedExecutor
	interval   time.Duration
}

// NewArmedExecutionWorker creates a new armed execution worker
func NewArmedExecutionWorker(uowFactory interfaces.UnitOfWorkFactory, executor ArmedExecutor, interval time.Duration) *ArmedExecutionWorker {
	return &ArmedExecutionWorker{uowFactory: uowFactory, executor: executor, interval: interval}
}

// Start begins the sweep loop and returns its stop function
func (w *ArmedExecutionWorker) Start(ctx context.Context) func() {
	return runEvery(ctx, "armed_execution", w.interval, w.Sweep)
}

// Sweep executes the armed instances of every campaign holding one
func (w *ArmedExecutionWorker) Sweep(ctx context.Context) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).Error("Failed to begin transaction for armed sweep")
		return
	}
	campaigns, err := uow.InstanceRepository().GetCampaignsWithArmed(ctx)
	uow.Rollback()
	if err != nil {
		log.WithError(err).Error("Failed to list campaigns with armed instances")
		return
	}

	for _, campaignID := range campaigns {
		executed, err := w.executor.ExecuteArmedInstances(ctx, campaignID)
		if err != nil {
			log.WithFields(log.Fields{
				"campaign_id": campaignID,
				"error":       err,
			}).Error("Failed to execute armed instances")
			continue
		}
		if executed > 0 {
			log.WithFields(log.Fields{
				"campaign_id": campaignID,
				"count":       executed,
			}).Info("Executed armed instances")
		}
	}
}

// OrphanRetryWorker retries the deletion of Twitch rewards that could not be removed
type OrphanRetryWorker struct {
	finder   OrphanFinder
	retrier  OrphanRetrier
	interval time.Duration
	now      func() time.Time
}

// NewOrphanRetryWorker creates a new orphan retry worker
func NewOrphanRetryWorker(finder OrphanFinder, retrier OrphanRetrier, interval time.Duration) *OrphanRetryWorker {
	return &OrphanRetryWorker{
		finder:   finder,
		retrier:  retrier,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the retry loop and returns its stop function
func (w *OrphanRetryWorker) Start(ctx context.Context) func() {
	return runEvery(ctx, "orphan_retry", w.interval, w.Sweep)
}

// Sweep retries every orphan whose backoff has elapsed
func (w *OrphanRetryWorker) Sweep(ctx context.Context) {
	now := w.now()
	deleted := 0

	configs, err := w.finder.FindOrphansDueForRetry(ctx, now)
	if err != nil {
		log.WithError(err).Error("Failed to find orphaned config rewards")
	}
	for _, config := range configs {
		ok, err := w.retrier.RetryOrphanDeletion(ctx, config)
		if err != nil {
			log.WithFields(log.Fields{
				"config_id": config.ID,
				"error":     err,
			}).Error("Failed to persist orphan retry")
		}
		if ok {
			deleted++
		}
	}

	rewards, err := w.finder.FindStreamerRewardsDueForRetry(ctx, now)
	if err != nil {
		log.WithError(err).Error("Failed to find orphaned streamer rewards")
	}
	for _, reward := range rewards {
		ok, err := w.retrier.RetryStreamerRewardDeletion(ctx, reward)
		if err != nil {
			log.WithFields(log.Fields{
				"reward_id": reward.ID,
				"error":     err,
			}).Error("Failed to persist orphan retry")
		}
		if ok {
			deleted++
		}
	}

	if len(configs)+len(rewards) > 0 {
		log.WithFields(log.Fields{
			"attempted": len(configs) + len(rewards),
			"deleted":   deleted,
		}).Info("Orphan retry sweep finished")
	}
}

// EventSubReconcileWorker periodically reconciles EventSub subscriptions
type EventSubReconcileWorker struct {
	reconciler SubscriptionReconciler
	interval   time.Duration
}

// NewEventSubReconcileWorker creates a new reconcile worker
func NewEventSubReconcileWorker(reconciler SubscriptionReconciler, interval time.Duration) *EventSubReconcileWorker {
	return &EventSubReconcileWorker{reconciler: reconciler, interval: interval}
}

// Start reconciles once, then on every interval. Returns the stop function.
func (w *EventSubReconcileWorker) Start(ctx context.Context) func() {
	go w.Sweep(ctx)
	return runEvery(ctx, "eventsub_reconcile", w.interval, w.Sweep)
}

// Sweep runs one reconciliation of every active streamer
func (w *EventSubReconcileWorker) Sweep(ctx context.Context) {
	result, err := w.reconciler.ReconcileAll(ctx)
	if err != nil {
		log.WithError(err).Error("EventSub reconciliation finished with errors")
	}
	if result != nil && (result.Created+result.Deleted+result.Orphaned) > 0 {
		log.WithFields(log.Fields{
			"created":  result.Created,
			"deleted":  result.Deleted,
			"orphaned": result.Orphaned,
		}).Info("EventSub subscriptions reconciled")
	}
}
