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

// RewardManagerService keeps campaign configs and their Twitch channel point
// rewards in sync. Remote deletion failures leave the reward orphaned for
// the retry sweep instead of failing the caller.
type RewardManagerService struct {
	uowFactory interfaces.UnitOfWorkFactory
	rewards    interfaces.RewardClient
	metrics    interfaces.MetricsRecorder
	now        func() time.Time
}

// NewRewardManagerService creates a reward manager
func NewRewardManagerService(uowFactory interfaces.UnitOfWorkFactory, rewards interfaces.RewardClient, metrics interfaces.MetricsRecorder) *RewardManagerService {
	return &RewardManagerService{
		uowFactory: uowFactory,
		rewards:    rewards,
		metrics:    metricsOrNoop(metrics),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// rewardScope is everything needed to sync the rewards of one config
type rewardScope struct {
	config  *entities.CampaignGamificationConfig
	event   *entities.GamificationEvent
	owner   *entities.Streamer
	members []*entities.Streamer
	rewards []*entities.StreamerReward
}

func (s *RewardManagerService) loadScope(ctx context.Context, configID uuid.UUID) (*rewardScope, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	config, err := uow.ConfigRepository().GetByID(ctx, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	if config == nil {
		return nil, entities.ErrConfigNotFound
	}

	event, err := uow.EventRepository().GetByID(ctx, config.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, entities.ErrEventNotFound
	}

	campaign, err := uow.CampaignRepository().GetByID(ctx, config.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if campaign == nil {
		return nil, entities.ErrCampaignNotFound
	}

	members, err := uow.CampaignRepository().GetMemberStreamers(ctx, config.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member streamers: %w", err)
	}

	rewards, err := uow.StreamerRewardRepository().GetByConfig(ctx, config.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get streamer rewards: %w", err)
	}

	scope := &rewardScope{config: config, event: event, rewards: rewards}
	for _, m := range members {
		if m.ID == campaign.OwnerStreamerID {
			scope.owner = m
		} else {
			scope.members = append(scope.members, m)
		}
	}
	return scope, nil
}

func (s *RewardManagerService) save(ctx context.Context, scope *rewardScope, newRewards []*entities.StreamerReward, published []events.Event) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.ConfigRepository().Update(ctx, scope.config); err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	isNew := make(map[*entities.StreamerReward]bool, len(newRewards))
	for _, r := range newRewards {
		isNew[r] = true
		if err := uow.StreamerRewardRepository().Create(ctx, r); err != nil {
			return fmt.Errorf("failed to create streamer reward: %w", err)
		}
	}
	for _, r := range scope.rewards {
		if isNew[r] {
			continue
		}
		if err := uow.StreamerRewardRepository().Update(ctx, r); err != nil {
			return fmt.Errorf("failed to update streamer reward: %w", err)
		}
	}

	for _, e := range published {
		if err := uow.EventBus().Publish(e); err != nil {
			log.WithError(err).Error("Failed to publish reward event")
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Enable turns the event on for the campaign and creates a channel point
// reward on every member channel. An existing reward is deleted first so
// Twitch never holds two rewards with the same title.
func (s *RewardManagerService) Enable(ctx context.Context, configID uuid.UUID) (*entities.CampaignGamificationConfig, error) {
	scope, err := s.loadScope(ctx, configID)
	if err != nil {
		return nil, err
	}

	scope.config.IsEnabled = true
	cost := scope.config.EffectiveCost(scope.event)
	var errs []error

	if scope.owner != nil {
		scope.config.BroadcasterID = scope.owner.TwitchUserID
		if err := s.recreate(ctx, &scope.config.RewardLink, scope.event, cost); err != nil {
			errs = append(errs, err)
		}
	}

	existing := make(map[uuid.UUID]*entities.StreamerReward, len(scope.rewards))
	for _, r := range scope.rewards {
		existing[r.StreamerID] = r
	}

	var created []*entities.StreamerReward
	for _, member := range scope.members {
		reward, ok := existing[member.ID]
		if !ok {
			reward = &entities.StreamerReward{
				ID:         uuid.New(),
				ConfigID:   scope.config.ID,
				StreamerID: member.ID,
				RewardLink: entities.RewardLink{TwitchRewardStatus: entities.RewardStatusNotCreated},
			}
			created = append(created, reward)
			scope.rewards = append(scope.rewards, reward)
		}
		reward.IsEnabled = true
		reward.BroadcasterID = member.TwitchUserID
		if err := s.recreate(ctx, &reward.RewardLink, scope.event, cost); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.save(ctx, scope, created, nil); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"config_id":   scope.config.ID,
		"campaign_id": scope.config.CampaignID,
		"event_slug":  scope.event.Slug,
		"cost":        cost,
	}).Info("Enabled gamification event")

	return scope.config, errors.Join(errs...)
}

// recreate deletes the linked reward if any and creates a fresh one
func (s *RewardManagerService) recreate(ctx context.Context, link *entities.RewardLink, event *entities.GamificationEvent, cost int) error {
	if link.HasReward() {
		err := s.rewards.DeleteCustomReward(ctx, link.BroadcasterID, *link.TwitchRewardID)
		if err != nil && !errors.Is(err, entities.ErrRemoteNotFound) {
			return fmt.Errorf("failed to delete previous reward on %s: %w", link.BroadcasterID, err)
		}
		link.MarkDeleted()
	}

	reward, err := s.rewards.CreateCustomReward(ctx, link.BroadcasterID, interfaces.CustomRewardRequest{
		Title:     event.Name,
		Prompt:    event.Description,
		Cost:      cost,
		IsEnabled: true,
	})
	if err != nil {
		link.TwitchRewardStatus = entities.RewardStatusNotCreated
		return fmt.Errorf("failed to create reward on %s: %w", link.BroadcasterID, err)
	}
	link.MarkActive(reward.ID)
	return nil
}

// Disable turns the event off for the campaign and deletes every reward
// tied to the config. The local state changes immediately; rewards that
// cannot be deleted are marked orphaned and retried later.
func (s *RewardManagerService) Disable(ctx context.Context, configID uuid.UUID) (*entities.CampaignGamificationConfig, error) {
	scope, err := s.loadScope(ctx, configID)
	if err != nil {
		return nil, err
	}

	scope.config.IsEnabled = false
	var published []events.Event

	if e := s.deleteOrOrphan(ctx, scope.config.ID, &scope.config.RewardLink); e != nil {
		published = append(published, e)
	}
	for _, reward := range scope.rewards {
		reward.IsEnabled = false
		if e := s.deleteOrOrphan(ctx, scope.config.ID, &reward.RewardLink); e != nil {
			published = append(published, e)
		}
	}

	if err := s.save(ctx, scope, nil, published); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"config_id":   scope.config.ID,
		"campaign_id": scope.config.CampaignID,
		"event_slug":  scope.event.Slug,
	}).Info("Disabled gamification event")

	return scope.config, nil
}

// deleteOrOrphan removes the remote reward of link and returns the event to publish
func (s *RewardManagerService) deleteOrOrphan(ctx context.Context, configID uuid.UUID, link *entities.RewardLink) events.Event {
	if !link.HasReward() {
		return nil
	}
	rewardID := *link.TwitchRewardID

	err := s.rewards.DeleteCustomReward(ctx, link.BroadcasterID, rewardID)
	if err == nil || errors.Is(err, entities.ErrRemoteNotFound) {
		link.MarkDeleted()
		return events.RewardDeletedEvent{ConfigID: configID, RewardID: rewardID}
	}

	now := s.now()
	link.MarkOrphaned(now, NextOrphanRetryAt(now, link.DeletionRetryCount+1))
	s.metrics.RecordRewardOrphaned()

	log.WithError(err).WithFields(log.Fields{
		"config_id":      configID,
		"reward_id":      rewardID,
		"retry_count":    link.DeletionRetryCount,
		"next_retry_at":  link.NextDeletionRetryAt,
		"broadcaster_id": link.BroadcasterID,
	}).Warn("Failed to delete Twitch reward, marked as orphaned")

	return events.RewardOrphanedEvent{ConfigID: configID, RewardID: rewardID, RetryCount: link.DeletionRetryCount}
}

// UpdateCost stores a new cost and pushes it to every active reward. Remote
// failures are returned but do not roll back the local cost.
func (s *RewardManagerService) UpdateCost(ctx context.Context, configID uuid.UUID, cost int) (*entities.CampaignGamificationConfig, error) {
	if cost <= 0 {
		return nil, fmt.Errorf("cost must be positive, got %d", cost)
	}

	scope, err := s.loadScope(ctx, configID)
	if err != nil {
		return nil, err
	}

	scope.config.Cost = &cost
	if err := s.save(ctx, scope, nil, nil); err != nil {
		return nil, err
	}

	if !scope.config.IsEnabled {
		return scope.config, nil
	}

	links := []*entities.RewardLink{&scope.config.RewardLink}
	for _, r := range scope.rewards {
		links = append(links, &r.RewardLink)
	}

	var errs []error
	for _, link := range links {
		if !link.HasReward() || link.TwitchRewardStatus != entities.RewardStatusActive {
			continue
		}
		if err := s.rewards.UpdateCustomReward(ctx, link.BroadcasterID, *link.TwitchRewardID, cost); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"config_id": configID,
				"reward_id": *link.TwitchRewardID,
			}).Warn("Failed to update Twitch reward cost")
			errs = append(errs, fmt.Errorf("failed to update reward %s: %w", *link.TwitchRewardID, err))
		}
	}

	return scope.config, errors.Join(errs...)
}

// RetryOrphanDeletion retries the remote deletion of an orphaned config reward.
// A renewed failure pushes the next attempt further out.
func (s *RewardManagerService) RetryOrphanDeletion(ctx context.Context, config *entities.CampaignGamificationConfig) (bool, error) {
	deleted := s.retryLink(ctx, config.ID, &config.RewardLink)
	return deleted, s.persist(ctx, func(uow interfaces.UnitOfWork) error {
		return uow.ConfigRepository().Update(ctx, config)
	}, config.ID, &config.RewardLink, deleted)
}

// RetryStreamerRewardDeletion is RetryOrphanDeletion for a per-streamer reward
func (s *RewardManagerService) RetryStreamerRewardDeletion(ctx context.Context, reward *entities.StreamerReward) (bool, error) {
	deleted := s.retryLink(ctx, reward.ConfigID, &reward.RewardLink)
	return deleted, s.persist(ctx, func(uow interfaces.UnitOfWork) error {
		return uow.StreamerRewardRepository().Update(ctx, reward)
	}, reward.ConfigID, &reward.RewardLink, deleted)
}

func (s *RewardManagerService) retryLink(ctx context.Context, configID uuid.UUID, link *entities.RewardLink) bool {
	if !link.IsOrphaned() || !link.HasReward() {
		return false
	}
	rewardID := *link.TwitchRewardID

	err := s.rewards.DeleteCustomReward(ctx, link.BroadcasterID, rewardID)
	if err == nil || errors.Is(err, entities.ErrRemoteNotFound) {
		link.MarkDeleted()
		log.WithFields(log.Fields{
			"config_id": configID,
			"reward_id": rewardID,
		}).Info("Deleted orphaned Twitch reward")
		return true
	}

	now := s.now()
	link.MarkOrphaned(now, NextOrphanRetryAt(now, link.DeletionRetryCount+1))
	log.WithError(err).WithFields(log.Fields{
		"config_id":     configID,
		"reward_id":     rewardID,
		"retry_count":   link.DeletionRetryCount,
		"next_retry_at": link.NextDeletionRetryAt,
	}).Warn("Orphaned reward deletion failed again")
	return false
}

func (s *RewardManagerService) persist(
	ctx context.Context,
	update func(uow interfaces.UnitOfWork) error,
	configID uuid.UUID,
	link *entities.RewardLink,
	deleted bool,
) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := update(uow); err != nil {
		return fmt.Errorf("failed to save reward state: %w", err)
	}

	var e events.Event = events.RewardOrphanedEvent{ConfigID: configID, RetryCount: link.DeletionRetryCount}
	if deleted {
		e = events.RewardDeletedEvent{ConfigID: configID}
	}
	if err := uow.EventBus().Publish(e); err != nil {
		log.WithError(err).Error("Failed to publish reward event")
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
