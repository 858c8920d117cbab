package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ReconcileResult summarizes one reconciliation of a streamer's subscriptions
type ReconcileResult struct {
	Created  int
	Deleted  int
	Orphaned int
	// Deferred counts orphaned subscriptions still waiting out their backoff
	Deferred int
}

// EventSubReconciler keeps the EventSub subscriptions of a streamer in line
// with its rewards: a streamer with at least one active reward needs the
// redemption add and update subscriptions, any other subscription is removed.
type EventSubReconciler struct {
	uowFactory interfaces.UnitOfWorkFactory
	client     interfaces.EventSubClient
	now        func() time.Time
}

// NewEventSubReconciler creates a reconciler
func NewEventSubReconciler(uowFactory interfaces.UnitOfWorkFactory, client interfaces.EventSubClient) *EventSubReconciler {
	return &EventSubReconciler{
		uowFactory: uowFactory,
		client:     client,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var managedSubscriptionTypes = []string{
	entities.EventSubRedemptionAdd,
	entities.EventSubRedemptionUpdate,
}

type reconcileState struct {
	streamer *entities.Streamer
	wanted   bool
	local    map[string]*entities.EventSubSubscription
}

func (r *EventSubReconciler) loadState(ctx context.Context, streamerID uuid.UUID) (*reconcileState, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	streamer, err := uow.StreamerRepository().GetByID(ctx, streamerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get streamer: %w", err)
	}
	if streamer == nil {
		return nil, fmt.Errorf("streamer %s not found", streamerID)
	}

	rewards, err := uow.StreamerRewardRepository().GetActiveByStreamer(ctx, streamerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rewards: %w", err)
	}
	wanted := len(rewards) > 0

	if !wanted {
		// campaign owners hold their reward on the config itself
		configs, err := uow.ConfigRepository().GetByRewardStatus(ctx, entities.RewardStatusActive)
		if err != nil {
			return nil, fmt.Errorf("failed to get active configs: %w", err)
		}
		for _, c := range configs {
			if c.BroadcasterID == streamer.TwitchUserID {
				wanted = true
				break
			}
		}
	}

	subs, err := uow.EventSubRepository().GetByStreamer(ctx, streamerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}

	local := make(map[string]*entities.EventSubSubscription, len(subs))
	for _, s := range subs {
		if s.TwitchSubscriptionID != nil {
			local[*s.TwitchSubscriptionID] = s
		} else {
			local["type:"+s.Type] = s
		}
	}

	return &reconcileState{streamer: streamer, wanted: wanted, local: local}, nil
}

// Reconcile brings the subscriptions of one streamer to the desired set
func (r *EventSubReconciler) Reconcile(ctx context.Context, streamerID uuid.UUID) (*ReconcileResult, error) {
	state, err := r.loadState(ctx, streamerID)
	if err != nil {
		return nil, err
	}

	remote, err := r.client.ListEventSubSubscriptions(ctx, state.streamer.TwitchUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list EventSub subscriptions: %w", err)
	}

	now := r.now()
	result := &ReconcileResult{}
	var creates, updates []*entities.EventSubSubscription
	var deletes []uuid.UUID
	var errs []error

	covered := make(map[string]bool, len(managedSubscriptionTypes))
	for _, rs := range remote {
		keep := state.wanted && isManagedType(rs.Type) && !covered[rs.Type]
		local := state.local[rs.ID]
		delete(state.local, rs.ID)

		if keep {
			covered[rs.Type] = true
			if local == nil {
				local = state.local["type:"+rs.Type]
				delete(state.local, "type:"+rs.Type)
			}
			if local == nil {
				creates = append(creates, r.newRecord(state.streamer, rs.Type, rs.ID))
			} else {
				r.markEnabled(local, rs.ID)
				updates = append(updates, local)
			}
			continue
		}

		if local != nil && local.Status == entities.SubscriptionStatusOrphaned && !local.IsDueForRetry(now) {
			result.Deferred++
			continue
		}

		if err := r.client.DeleteEventSubSubscription(ctx, rs.ID); err != nil && !errors.Is(err, entities.ErrRemoteNotFound) {
			if local == nil {
				local = r.newRecord(state.streamer, rs.Type, rs.ID)
				creates = append(creates, local)
			} else {
				updates = append(updates, local)
			}
			r.markOrphaned(local, err)
			result.Orphaned++
			log.WithError(err).WithFields(log.Fields{
				"streamer_id":     state.streamer.ID,
				"subscription_id": rs.ID,
				"type":            rs.Type,
			}).Warn("Failed to delete EventSub subscription, marked as orphaned")
			continue
		}
		result.Deleted++
		if local != nil {
			deletes = append(deletes, local.ID)
		}
	}

	if state.wanted {
		for _, subType := range managedSubscriptionTypes {
			if covered[subType] {
				continue
			}
			local := state.local["type:"+subType]
			delete(state.local, "type:"+subType)
			if local == nil {
				local = r.newRecord(state.streamer, subType, "")
				creates = append(creates, local)
			} else {
				updates = append(updates, local)
			}

			created, err := r.client.CreateEventSubSubscription(ctx, subType, state.streamer.TwitchUserID)
			if err != nil {
				msg := err.Error()
				local.Status = entities.SubscriptionStatusFailed
				local.LastError = &msg
				errs = append(errs, fmt.Errorf("failed to create %s subscription: %w", subType, err))
				continue
			}
			r.markEnabled(local, created.ID)
			result.Created++
		}
	}

	// local records whose remote subscription is gone
	for _, local := range state.local {
		if local.Status == entities.SubscriptionStatusFailed && state.wanted {
			continue
		}
		deletes = append(deletes, local.ID)
	}

	if err := r.save(ctx, creates, updates, deletes); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"streamer_id": state.streamer.ID,
		"wanted":      state.wanted,
		"created":     result.Created,
		"deleted":     result.Deleted,
		"orphaned":    result.Orphaned,
		"deferred":    result.Deferred,
	}).Debug("Reconciled EventSub subscriptions")

	return result, errors.Join(errs...)
}

// ReconcileAll reconciles every active streamer and returns the combined counts
func (r *EventSubReconciler) ReconcileAll(ctx context.Context) (*ReconcileResult, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	streamers, err := uow.StreamerRepository().GetActive(ctx)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to get active streamers: %w", err)
	}

	total := &ReconcileResult{}
	var errs []error
	for _, st := range streamers {
		res, err := r.Reconcile(ctx, st.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("streamer %s: %w", st.ID, err))
		}
		if res != nil {
			total.Created += res.Created
			total.Deleted += res.Deleted
			total.Orphaned += res.Orphaned
			total.Deferred += res.Deferred
		}
	}
	return total, errors.Join(errs...)
}

func (r *EventSubReconciler) newRecord(streamer *entities.Streamer, subType, remoteID string) *entities.EventSubSubscription {
	now := r.now()
	sub := &entities.EventSubSubscription{
		ID:            uuid.New(),
		StreamerID:    streamer.ID,
		BroadcasterID: streamer.TwitchUserID,
		Type:          subType,
		Status:        entities.SubscriptionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if remoteID != "" {
		sub.TwitchSubscriptionID = &remoteID
	}
	return sub
}

func (r *EventSubReconciler) markEnabled(sub *entities.EventSubSubscription, remoteID string) {
	sub.TwitchSubscriptionID = &remoteID
	sub.Status = entities.SubscriptionStatusEnabled
	sub.LastError = nil
	sub.RetryCount = 0
	sub.NextRetryAt = nil
	sub.UpdatedAt = r.now()
}

func (r *EventSubReconciler) markOrphaned(sub *entities.EventSubSubscription, cause error) {
	now := r.now()
	msg := cause.Error()
	sub.RetryCount++
	next := NextOrphanRetryAt(now, sub.RetryCount)
	sub.Status = entities.SubscriptionStatusOrphaned
	sub.LastError = &msg
	sub.NextRetryAt = &next
	sub.UpdatedAt = now
}

func (r *EventSubReconciler) save(ctx context.Context, creates, updates []*entities.EventSubSubscription, deletes []uuid.UUID) error {
	if len(creates)+len(updates)+len(deletes) == 0 {
		return nil
	}

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.EventSubRepository()
	for _, s := range creates {
		if err := repo.Create(ctx, s); err != nil {
			return fmt.Errorf("failed to create subscription record: %w", err)
		}
	}
	for _, s := range updates {
		if err := repo.Update(ctx, s); err != nil {
			return fmt.Errorf("failed to update subscription record: %w", err)
		}
	}
	for _, id := range deletes {
		if err := repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete subscription record: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isManagedType(subType string) bool {
	for _, t := range managedSubscriptionTypes {
		if t == subType {
			return true
		}
	}
	return false
}
