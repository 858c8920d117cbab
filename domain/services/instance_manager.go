package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/events"
	"tumulte/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var openStatuses = []entities.InstanceStatus{
	entities.InstanceStatusActive,
	entities.InstanceStatusArmed,
}

// ContributionInput is a viewer redemption to apply to an instance
type ContributionInput struct {
	CampaignID         uuid.UUID
	StreamerID         *uuid.UUID
	TwitchUserID       string
	TwitchUsername     string
	Amount             int
	TwitchRedemptionID string
}

// ContributionOutcome reports what a contribution did to its instance
type ContributionOutcome struct {
	Instance *entities.GamificationInstance
	// Accepted is false when the redemption id was already recorded
	Accepted bool
	// Armed is true when this contribution moved the instance to armed
	Armed bool
}

// InstanceManager owns the instance state machine. Every mutation runs in
// its own unit of work and status changes are conditional updates, so
// concurrent webhooks and sweeps cannot apply a transition twice.
type InstanceManager struct {
	uowFactory interfaces.UnitOfWorkFactory
	calculator interfaces.ObjectiveCalculator
	audience   interfaces.StreamerContextProvider
	cooldowns  interfaces.CooldownCache
	metrics    interfaces.MetricsRecorder
	now        func() time.Time
}

// NewInstanceManager creates an instance manager. audience and cooldowns may be nil.
func NewInstanceManager(
	uowFactory interfaces.UnitOfWorkFactory,
	calculator interfaces.ObjectiveCalculator,
	audience interfaces.StreamerContextProvider,
	cooldowns interfaces.CooldownCache,
	metrics interfaces.MetricsRecorder,
) *InstanceManager {
	return &InstanceManager{
		uowFactory: uowFactory,
		calculator: calculator,
		audience:   audience,
		cooldowns:  cooldowns,
		metrics:    metricsOrNoop(metrics),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// KeyFor returns the instance key of an event occurrence. Group events ignore the streamer.
func KeyFor(event *entities.GamificationEvent, campaignID uuid.UUID, streamerID *uuid.UUID) entities.InstanceKey {
	key := entities.InstanceKey{EventID: event.ID, CampaignID: campaignID}
	if event.IsIndividual() {
		key.StreamerID = streamerID
	}
	return key
}

// CreateInstance opens an instance for the event, or returns the instance
// already open for the same key. created is false in that case. A key on
// cooldown yields a nil instance and no error.
func (m *InstanceManager) CreateInstance(
	ctx context.Context,
	event *entities.GamificationEvent,
	config *entities.CampaignGamificationConfig,
	triggerData *entities.TriggerData,
	streamerID *uuid.UUID,
) (*entities.GamificationInstance, bool, error) {
	key := KeyFor(event, config.CampaignID, streamerID)

	// the audience lookup is remote, so it happens before the transaction
	objective := m.initialObjective(ctx, event, config, key)

	instance, created, err := m.createInTx(ctx, event, config, key, triggerData, objective)
	if errors.Is(err, entities.ErrDuplicateOpenInstance) {
		// lost a creation race: the winner's instance is the one to use
		existing, getErr := m.GetActiveInstance(ctx, key)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	return instance, created, err
}

func (m *InstanceManager) createInTx(
	ctx context.Context,
	event *entities.GamificationEvent,
	config *entities.CampaignGamificationConfig,
	key entities.InstanceKey,
	triggerData *entities.TriggerData,
	objective int,
) (*entities.GamificationInstance, bool, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.InstanceRepository()
	now := m.now()

	existing, err := repo.GetOpenByKey(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get open instance: %w", err)
	}
	if existing != nil {
		if !existing.IsExpiredAt(now) {
			return existing, false, nil
		}
		// the sweep has not reached it yet; expire it now to free the key
		if _, err := m.expire(ctx, uow, existing, now); err != nil {
			return nil, false, err
		}
	}

	onCooldown, err := m.isOnCooldown(ctx, repo, key, now)
	if err != nil {
		return nil, false, err
	}
	if onCooldown {
		log.WithFields(log.Fields{
			"event_id":    key.EventID,
			"campaign_id": key.CampaignID,
		}).Debug("Instance key is on cooldown, not creating instance")
		return nil, false, nil
	}

	instance := &entities.GamificationInstance{
		ID:              uuid.New(),
		CampaignID:      key.CampaignID,
		EventID:         event.ID,
		StreamerID:      key.StreamerID,
		Type:            event.Type,
		Status:          entities.InstanceStatusActive,
		TriggerData:     triggerData,
		ObjectiveTarget: objective,
		StartsAt:        now,
		ExpiresAt:       now.Add(config.EffectiveDuration(event)),
		ExecutionStatus: entities.ExecutionStatusPending,
	}
	if err := repo.Create(ctx, instance); err != nil {
		return nil, false, fmt.Errorf("failed to create instance: %w", err)
	}

	if err := uow.EventBus().Publish(events.InstanceCreatedEvent{
		InstanceID: instance.ID,
		CampaignID: instance.CampaignID,
		EventID:    instance.EventID,
		StreamerID: instance.StreamerID,
		Objective:  instance.ObjectiveTarget,
	}); err != nil {
		log.WithError(err).Error("Failed to publish instance created event")
	}

	if err := uow.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"instance_id": instance.ID,
		"event_slug":  event.Slug,
		"campaign_id": instance.CampaignID,
		"objective":   instance.ObjectiveTarget,
		"expires_at":  instance.ExpiresAt,
	}).Info("Created gamification instance")

	return instance, true, nil
}

// initialObjective sizes the objective of a new instance. A misconfigured
// event gets 0, which keeps the instance from ever arming.
func (m *InstanceManager) initialObjective(
	ctx context.Context,
	event *entities.GamificationEvent,
	config *entities.CampaignGamificationConfig,
	key entities.InstanceKey,
) int {
	streamerCtx := entities.StreamerContext{}
	if m.audience != nil {
		sc, err := m.audience.GetStreamerContext(ctx, key.CampaignID, key.StreamerID)
		if err != nil {
			log.WithError(err).WithField("campaign_id", key.CampaignID).Warn("Failed to get streamer context, sizing objective from minimum")
		} else {
			streamerCtx = sc
		}
	}

	progress, err := m.calculator.Calculate(event, config, nil, streamerCtx)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event_slug":  event.Slug,
			"campaign_id": key.CampaignID,
		}).Warn("Objective misconfigured, instance will not arm")
		return 0
	}
	return progress.Objective
}

// Contribute applies a redemption to an instance and arms it when the
// objective is reached. A redemption id seen before is a no-op.
func (m *InstanceManager) Contribute(
	ctx context.Context,
	instanceID uuid.UUID,
	event *entities.GamificationEvent,
	config *entities.CampaignGamificationConfig,
	input ContributionInput,
) (*ContributionOutcome, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	instanceRepo := uow.InstanceRepository()
	contributionRepo := uow.ContributionRepository()
	now := m.now()

	// row lock: contributions to one instance apply in arrival order
	instance, err := instanceRepo.GetByIDForUpdate(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	if instance == nil {
		return nil, entities.ErrInstanceNotFound
	}
	if instance.CampaignID != input.CampaignID {
		return nil, entities.ErrCampaignMismatch
	}
	if instance.Status.IsTerminal() {
		return nil, entities.ErrInstanceTerminal
	}
	if instance.IsExpiredAt(now) {
		if _, err := m.expire(ctx, uow, instance, now); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil, entities.ErrInstanceTerminal
	}

	amount := input.Amount
	if amount <= 0 {
		amount = 1
	}
	created, err := contributionRepo.Create(ctx, &entities.GamificationContribution{
		ID:                 uuid.New(),
		InstanceID:         instance.ID,
		StreamerID:         input.StreamerID,
		TwitchUserID:       input.TwitchUserID,
		TwitchUsername:     input.TwitchUsername,
		Amount:             amount,
		TwitchRedemptionID: input.TwitchRedemptionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create contribution: %w", err)
	}
	m.metrics.RecordContribution(created)
	if !created {
		log.WithFields(log.Fields{
			"instance_id":   instance.ID,
			"redemption_id": input.TwitchRedemptionID,
		}).Debug("Duplicate redemption ignored")
		return &ContributionOutcome{Instance: instance, Accepted: false}, nil
	}

	contributions, err := contributionRepo.GetByInstance(ctx, instance.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contributions: %w", err)
	}

	progress, calcErr := m.calculator.Calculate(event, config, contributions, entities.StreamerContext{
		FixedObjective: instance.ObjectiveTarget,
	})
	if calcErr != nil {
		log.WithError(calcErr).WithFields(log.Fields{
			"instance_id": instance.ID,
			"event_slug":  event.Slug,
		}).Warn("Objective misconfigured, instance stays active")
	}

	if err := instanceRepo.UpdateProgress(ctx, instance.ID, progress.Progress); err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	instance.CurrentProgress = progress.Progress

	outcome := &ContributionOutcome{Instance: instance, Accepted: true}

	if calcErr == nil && progress.ObjectiveMet && instance.Status == entities.InstanceStatusActive {
		onCooldown, err := m.isOnCooldown(ctx, instanceRepo, instance.Key(), now)
		if err != nil {
			return nil, err
		}
		if !onCooldown {
			armed, err := instanceRepo.TransitionStatus(ctx, instance.ID,
				[]entities.InstanceStatus{entities.InstanceStatusActive}, entities.InstanceStatusArmed, now)
			if err != nil {
				return nil, fmt.Errorf("failed to arm instance: %w", err)
			}
			if armed {
				instance.Status = entities.InstanceStatusArmed
				instance.ArmedAt = &now
				outcome.Armed = true
			}
		}
	}

	bus := uow.EventBus()
	if err := bus.Publish(events.InstanceProgressEvent{
		InstanceID: instance.ID,
		CampaignID: instance.CampaignID,
		Progress:   progress.Progress,
		Objective:  instance.ObjectiveTarget,
	}); err != nil {
		log.WithError(err).Error("Failed to publish instance progress event")
	}
	if outcome.Armed {
		if err := bus.Publish(events.InstanceArmedEvent{
			InstanceID: instance.ID,
			CampaignID: instance.CampaignID,
		}); err != nil {
			log.WithError(err).Error("Failed to publish instance armed event")
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"instance_id": instance.ID,
		"progress":    progress.Progress,
		"objective":   instance.ObjectiveTarget,
		"armed":       outcome.Armed,
	}).Info("Applied contribution")

	return outcome, nil
}

// RefundContribution marks the contribution of a redemption as refunded and
// recomputes the progress of its instance if it is still open. Unknown or
// already refunded redemptions return nil.
func (m *InstanceManager) RefundContribution(
	ctx context.Context,
	redemptionID string,
) (*entities.GamificationContribution, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	contributionRepo := uow.ContributionRepository()
	instanceRepo := uow.InstanceRepository()
	now := m.now()

	contribution, err := contributionRepo.GetByRedemptionID(ctx, redemptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	if contribution == nil || contribution.Refunded {
		return nil, nil
	}

	instance, err := instanceRepo.GetByIDForUpdate(ctx, contribution.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	if err := contributionRepo.MarkRefunded(ctx, contribution.ID, now); err != nil {
		return nil, fmt.Errorf("failed to mark contribution refunded: %w", err)
	}
	contribution.Refunded = true
	contribution.RefundedAt = &now

	if instance != nil && instance.IsOpen() {
		if err := m.recountProgress(ctx, uow, instance); err != nil {
			return nil, err
		}
	}

	if err := uow.EventBus().Publish(events.ContributionRefundedEvent{
		InstanceID:   contribution.InstanceID,
		RedemptionID: redemptionID,
	}); err != nil {
		log.WithError(err).Error("Failed to publish contribution refunded event")
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return contribution, nil
}

// FindContribution returns the contribution recorded for a redemption and
// its instance, or nils when the redemption was never counted
func (m *InstanceManager) FindContribution(
	ctx context.Context,
	redemptionID string,
) (*entities.GamificationContribution, *entities.GamificationInstance, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	contribution, err := uow.ContributionRepository().GetByRedemptionID(ctx, redemptionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	if contribution == nil {
		return nil, nil, nil
	}
	instance, err := uow.InstanceRepository().GetByID(ctx, contribution.InstanceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return contribution, instance, nil
}

// recountProgress recomputes the progress of an open instance with the
// objective calculator, keeping the objective fixed at creation
func (m *InstanceManager) recountProgress(ctx context.Context, uow interfaces.UnitOfWork, instance *entities.GamificationInstance) error {
	event, err := uow.EventRepository().GetByID(ctx, instance.EventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return fmt.Errorf("event %s of instance %s not found", instance.EventID, instance.ID)
	}
	config, err := uow.ConfigRepository().GetByCampaignAndEvent(ctx, instance.CampaignID, instance.EventID)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	contributions, err := uow.ContributionRepository().GetByInstance(ctx, instance.ID)
	if err != nil {
		return fmt.Errorf("failed to get contributions: %w", err)
	}
	progress, calcErr := m.calculator.Calculate(event, config, contributions, entities.StreamerContext{
		FixedObjective: instance.ObjectiveTarget,
	})
	if calcErr != nil {
		log.WithError(calcErr).WithField("instance_id", instance.ID).Warn("Objective misconfigured while recounting progress")
	}

	if err := uow.InstanceRepository().UpdateProgress(ctx, instance.ID, progress.Progress); err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	instance.CurrentProgress = progress.Progress
	return nil
}

// ClaimForExecution moves an armed instance to completed and starts its
// cooldown. Only the first caller gets true; the action must run only then.
func (m *InstanceManager) ClaimForExecution(
	ctx context.Context,
	instance *entities.GamificationInstance,
	cooldown time.Duration,
) (bool, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := m.now()
	var cooldownEndsAt *time.Time
	if cooldown > 0 {
		end := now.Add(cooldown)
		cooldownEndsAt = &end
	}

	claimed, err := uow.InstanceRepository().ClaimForExecution(ctx, instance.ID, now, cooldownEndsAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim instance: %w", err)
	}
	if !claimed {
		return false, nil
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	instance.Status = entities.InstanceStatusCompleted
	instance.CompletedAt = &now
	instance.CooldownEndsAt = cooldownEndsAt

	if cooldownEndsAt != nil && m.cooldowns != nil {
		if err := m.cooldowns.SetCooldown(ctx, instance.Key(), *cooldownEndsAt); err != nil {
			log.WithError(err).WithField("instance_id", instance.ID).Warn("Failed to cache cooldown")
		}
	}

	return true, nil
}

// RecordExecution stores the outcome of a claimed instance's action
func (m *InstanceManager) RecordExecution(
	ctx context.Context,
	instance *entities.GamificationInstance,
	event *entities.GamificationEvent,
	result entities.ResultData,
) error {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	status := entities.ExecutionStatusExecuted
	if !result.Success {
		status = entities.ExecutionStatusFailed
	}
	now := m.now()

	if err := uow.InstanceRepository().RecordExecution(ctx, instance.ID, status, now, &result); err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	if err := uow.EventBus().Publish(events.InstanceCompletedEvent{
		InstanceID: instance.ID,
		CampaignID: instance.CampaignID,
		ActionType: string(event.ActionType),
		Success:    result.Success,
	}); err != nil {
		log.WithError(err).Error("Failed to publish instance completed event")
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	instance.ExecutionStatus = status
	instance.ExecutedAt = &now
	instance.ResultData = &result
	return nil
}

// Cancel moves an open instance of the campaign to cancelled
func (m *InstanceManager) Cancel(ctx context.Context, instanceID, campaignID uuid.UUID, reason string) error {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.InstanceRepository()
	instance, err := repo.GetByIDForUpdate(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("failed to get instance: %w", err)
	}
	if instance == nil {
		return entities.ErrInstanceNotFound
	}
	if instance.CampaignID != campaignID {
		return entities.ErrCampaignMismatch
	}

	cancelled, err := repo.TransitionStatus(ctx, instanceID, openStatuses, entities.InstanceStatusCancelled, m.now())
	if err != nil {
		return fmt.Errorf("failed to cancel instance: %w", err)
	}
	if !cancelled {
		return entities.ErrInstanceTerminal
	}

	if err := uow.EventBus().Publish(events.InstanceCancelledEvent{
		InstanceID: instanceID,
		CampaignID: campaignID,
		Reason:     reason,
	}); err != nil {
		log.WithError(err).Error("Failed to publish instance cancelled event")
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"instance_id": instanceID,
		"reason":      reason,
	}).Info("Cancelled gamification instance")
	return nil
}

// CheckAndExpireInstances expires every open instance past its deadline and
// returns how many it transitioned. Rows another sweep already expired are skipped.
func (m *InstanceManager) CheckAndExpireInstances(ctx context.Context) (int, error) {
	now := m.now()

	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	expirable, err := uow.InstanceRepository().GetExpirable(ctx, now)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to get expirable instances: %w", err)
	}

	if len(expirable) == 0 {
		return 0, nil
	}

	var expiredCount, failureCount int
	for _, instance := range expirable {
		expired, err := m.expireOne(ctx, instance, now)
		if err != nil {
			log.WithError(err).WithField("instance_id", instance.ID).Error("Failed to expire instance")
			failureCount++
			continue
		}
		if expired {
			expiredCount++
		}
	}

	m.metrics.RecordInstancesExpired(expiredCount)

	log.WithFields(log.Fields{
		"candidates": len(expirable),
		"expired":    expiredCount,
		"failed":     failureCount,
	}).Info("Completed instance expiry sweep")

	return expiredCount, nil
}

func (m *InstanceManager) expireOne(ctx context.Context, instance *entities.GamificationInstance, now time.Time) (bool, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expired, err := m.expire(ctx, uow, instance, now)
	if err != nil || !expired {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// expire transitions an open instance to expired inside uow
func (m *InstanceManager) expire(ctx context.Context, uow interfaces.UnitOfWork, instance *entities.GamificationInstance, now time.Time) (bool, error) {
	expired, err := uow.InstanceRepository().TransitionStatus(ctx, instance.ID, openStatuses, entities.InstanceStatusExpired, now)
	if err != nil {
		return false, fmt.Errorf("failed to expire instance: %w", err)
	}
	if !expired {
		return false, nil
	}

	instance.Status = entities.InstanceStatusExpired
	if err := uow.EventBus().Publish(events.InstanceExpiredEvent{
		InstanceID: instance.ID,
		CampaignID: instance.CampaignID,
	}); err != nil {
		log.WithError(err).Error("Failed to publish instance expired event")
	}
	return true, nil
}

// IsOnCooldown returns true if a completion of key is still cooling down
func (m *InstanceManager) IsOnCooldown(ctx context.Context, key entities.InstanceKey) (bool, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return m.isOnCooldown(ctx, uow.InstanceRepository(), key, m.now())
}

func (m *InstanceManager) isOnCooldown(ctx context.Context, repo interfaces.GamificationInstanceRepository, key entities.InstanceKey, now time.Time) (bool, error) {
	if m.cooldowns != nil {
		cached, err := m.cooldowns.IsOnCooldown(ctx, key)
		if err != nil {
			log.WithError(err).Debug("Cooldown cache unavailable, using database")
		} else if cached {
			return true, nil
		}
	}

	end, err := repo.GetLatestCooldownEnd(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to get cooldown: %w", err)
	}
	return end != nil && end.After(now), nil
}

// GetActiveInstance returns the open instance of key, nil if there is none
func (m *InstanceManager) GetActiveInstance(ctx context.Context, key entities.InstanceKey) (*entities.GamificationInstance, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	instance, err := uow.InstanceRepository().GetOpenByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get open instance: %w", err)
	}
	return instance, nil
}
