package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RedemptionStatusCanceled refunds the viewer's channel points
const RedemptionStatusCanceled = "CANCELED"

// maxParallelExecutions bounds concurrent VTT commands of one sweep
const maxParallelExecutions = 8

// GamificationService orchestrates trigger evaluation, instance lifecycle and action execution
type GamificationService struct {
	uowFactory interfaces.UnitOfWorkFactory
	evaluator  *TriggerEvaluator
	instances  *InstanceManager
	executor   *ActionExecutor
	rewards    interfaces.RewardClient
	matcher    *RuleMatcher
}

// NewGamificationService creates the gamification façade
func NewGamificationService(
	uowFactory interfaces.UnitOfWorkFactory,
	evaluator *TriggerEvaluator,
	instances *InstanceManager,
	executor *ActionExecutor,
	rewards interfaces.RewardClient,
) *GamificationService {
	return &GamificationService{
		uowFactory: uowFactory,
		evaluator:  evaluator,
		instances:  instances,
		executor:   executor,
		rewards:    rewards,
		matcher:    NewRuleMatcher(),
	}
}

// campaignEvent is an enabled event of a campaign with its override
type campaignEvent struct {
	event  *entities.GamificationEvent
	config *entities.CampaignGamificationConfig
}

// HandleTrigger evaluates data against event and opens (or returns) the
// matching instance. It returns nil when the trigger does not fire, the event
// is not enabled for the campaign, or the key is on cooldown.
func (s *GamificationService) HandleTrigger(
	ctx context.Context,
	event *entities.GamificationEvent,
	data any,
	tctx entities.TriggerContext,
) (*entities.GamificationInstance, error) {
	result := s.evaluator.Evaluate(event, data)
	if !result.ShouldTrigger {
		return nil, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	config, err := uow.ConfigRepository().GetByCampaignAndEvent(ctx, tctx.CampaignID, event.ID)
	if err != nil {
		uow.Rollback()
		return nil, fmt.Errorf("failed to get campaign config: %w", err)
	}
	var campaign *entities.Campaign
	if config != nil && config.IsEnabled {
		campaign, err = uow.CampaignRepository().GetByID(ctx, tctx.CampaignID)
		if err != nil {
			uow.Rollback()
			return nil, fmt.Errorf("failed to get campaign: %w", err)
		}
	}
	uow.Rollback()

	if config == nil || !config.IsEnabled {
		log.WithFields(log.Fields{
			"event_slug":  event.Slug,
			"campaign_id": tctx.CampaignID,
		}).Debug("Event not enabled for campaign, ignoring trigger")
		return nil, nil
	}
	if campaign == nil {
		return nil, entities.ErrCampaignNotFound
	}

	streamerID := tctx.StreamerID
	if event.IsIndividual() && streamerID == nil {
		streamerID = &campaign.OwnerStreamerID
	}

	instance, _, err := s.instances.CreateInstance(ctx, event, config, result.TriggerData, streamerID)
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// HandleTriggerBySlug resolves the event definition by slug and runs HandleTrigger
func (s *GamificationService) HandleTriggerBySlug(
	ctx context.Context,
	slug string,
	data any,
	tctx entities.TriggerContext,
) (*entities.GamificationInstance, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	event, err := uow.EventRepository().GetBySlug(ctx, slug)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", slug, err)
	}
	if event == nil {
		return nil, entities.ErrEventNotFound
	}
	return s.HandleTrigger(ctx, event, data, tctx)
}

// HandleDiceRoll classifies a VTT roll with the campaign rules and runs it
// through every enabled dice trigger of the campaign. Individual events open
// one instance per member streamer.
func (s *GamificationService) HandleDiceRoll(
	ctx context.Context,
	roll *entities.DiceRoll,
	tctx entities.TriggerContext,
) ([]*entities.GamificationInstance, error) {
	enabled, rules, members, err := s.loadRollScope(ctx, tctx.CampaignID)
	if err != nil {
		return nil, err
	}

	if classification := s.matcher.ClassifyRoll(rules, roll); classification != nil {
		ApplyClassification(roll, classification)
		log.WithFields(log.Fields{
			"roll_id":     roll.ID,
			"rule":        classification.Rule.Label,
			"result_type": classification.ResultType,
		}).Debug("Roll matched criticality rule")
	}

	var created []*entities.GamificationInstance
	var errs []error

	for _, ce := range enabled {
		if ce.event.TriggerType != entities.TriggerTypeDiceCritical {
			continue
		}

		result := s.evaluator.Evaluate(ce.event, roll)
		if !result.ShouldTrigger {
			continue
		}

		for _, streamerID := range s.targets(ce.event, tctx.StreamerID, members) {
			instance, _, err := s.instances.CreateInstance(ctx, ce.event, ce.config, result.TriggerData, streamerID)
			if err != nil {
				log.WithError(err).WithField("event_slug", ce.event.Slug).Error("Failed to create instance for dice roll")
				errs = append(errs, err)
				continue
			}
			if instance != nil {
				created = append(created, instance)
			}
		}
	}

	return created, errors.Join(errs...)
}

func (s *GamificationService) targets(event *entities.GamificationEvent, streamerID *uuid.UUID, members []*entities.Streamer) []*uuid.UUID {
	if !event.IsIndividual() {
		return []*uuid.UUID{nil}
	}
	if streamerID != nil {
		return []*uuid.UUID{streamerID}
	}
	targets := make([]*uuid.UUID, 0, len(members))
	for _, m := range members {
		id := m.ID
		targets = append(targets, &id)
	}
	return targets
}

func (s *GamificationService) loadRollScope(ctx context.Context, campaignID uuid.UUID) (
	[]campaignEvent,
	[]*entities.CampaignCriticalityRule,
	[]*entities.Streamer,
	error,
) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	enabled, err := s.enabledEvents(ctx, uow, campaignID)
	if err != nil {
		return nil, nil, nil, err
	}

	rules, err := uow.CriticalityRuleRepository().GetByCampaign(ctx, campaignID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get criticality rules: %w", err)
	}

	members, err := uow.CampaignRepository().GetMemberStreamers(ctx, campaignID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get member streamers: %w", err)
	}

	return enabled, rules, members, nil
}

func (s *GamificationService) enabledEvents(ctx context.Context, uow interfaces.UnitOfWork, campaignID uuid.UUID) ([]campaignEvent, error) {
	configs, err := uow.ConfigRepository().GetEnabledByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled configs: %w", err)
	}

	enabled := make([]campaignEvent, 0, len(configs))
	for _, config := range configs {
		event, err := uow.EventRepository().GetByID(ctx, config.EventID)
		if err != nil {
			return nil, fmt.Errorf("failed to get event %s: %w", config.EventID, err)
		}
		if event == nil {
			log.WithField("event_id", config.EventID).Warn("Enabled config references a missing event")
			continue
		}
		enabled = append(enabled, campaignEvent{event: event, config: config})
	}
	return enabled, nil
}

// redemptionTarget is what a channel point redemption resolves to
type redemptionTarget struct {
	event      *entities.GamificationEvent
	config     *entities.CampaignGamificationConfig
	campaign   *entities.Campaign
	streamerID *uuid.UUID
}

// HandleRedemption applies a channel point redemption to the open instance
// of its reward. Redemptions with nowhere to go are refunded on Twitch. An
// instance armed by this redemption has its action executed before returning.
func (s *GamificationService) HandleRedemption(
	ctx context.Context,
	redemption entities.ChannelPointRedemption,
) (*ContributionOutcome, error) {
	if outcome, err := s.alreadyCounted(ctx, redemption.RedemptionID); err != nil || outcome != nil {
		return outcome, err
	}

	target, err := s.resolveRedemption(ctx, redemption)
	if err != nil {
		return nil, err
	}
	if target == nil {
		log.WithField("reward_id", redemption.RewardID).Debug("Redemption does not belong to an enabled gamification reward")
		return nil, nil
	}

	key := KeyFor(target.event, target.campaign.ID, target.streamerID)
	instance, err := s.instances.GetActiveInstance(ctx, key)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return s.refundUnlessCounted(ctx, redemption, "no open instance")
	}

	outcome, err := s.instances.Contribute(ctx, instance.ID, target.event, target.config, ContributionInput{
		CampaignID:         target.campaign.ID,
		StreamerID:         target.streamerID,
		TwitchUserID:       redemption.UserID,
		TwitchUsername:     redemption.UserName,
		Amount:             1,
		TwitchRedemptionID: redemption.RedemptionID,
	})
	if errors.Is(err, entities.ErrInstanceTerminal) {
		return s.refundUnlessCounted(ctx, redemption, "instance closed")
	}
	if err != nil {
		return nil, err
	}

	if outcome.Armed {
		if _, err := s.executeArmed(ctx, outcome.Instance, target.event, target.config, target.campaign.VTTConnectionID); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func (s *GamificationService) resolveRedemption(ctx context.Context, redemption entities.ChannelPointRedemption) (*redemptionTarget, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	target := &redemptionTarget{}

	config, err := uow.ConfigRepository().GetByTwitchRewardID(ctx, redemption.RewardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get config by reward: %w", err)
	}
	if config != nil {
		streamer, err := uow.StreamerRepository().GetByTwitchUserID(ctx, redemption.BroadcasterID)
		if err != nil {
			return nil, fmt.Errorf("failed to get streamer: %w", err)
		}
		if streamer != nil {
			target.streamerID = &streamer.ID
		}
	} else {
		reward, err := uow.StreamerRewardRepository().GetByTwitchRewardID(ctx, redemption.RewardID)
		if err != nil {
			return nil, fmt.Errorf("failed to get streamer reward: %w", err)
		}
		if reward == nil || !reward.IsEnabled {
			return nil, nil
		}
		config, err = uow.ConfigRepository().GetByID(ctx, reward.ConfigID)
		if err != nil {
			return nil, fmt.Errorf("failed to get config: %w", err)
		}
		streamerID := reward.StreamerID
		target.streamerID = &streamerID
	}
	if config == nil || !config.IsEnabled {
		return nil, nil
	}
	target.config = config

	target.event, err = uow.EventRepository().GetByID(ctx, config.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if target.event == nil {
		return nil, entities.ErrEventNotFound
	}

	target.campaign, err = uow.CampaignRepository().GetByID(ctx, config.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if target.campaign == nil {
		return nil, entities.ErrCampaignNotFound
	}

	return target, nil
}

// alreadyCounted returns a not-accepted outcome when the redemption already
// has a contribution, so redelivered webhooks are no-ops
func (s *GamificationService) alreadyCounted(ctx context.Context, redemptionID string) (*ContributionOutcome, error) {
	contribution, instance, err := s.instances.FindContribution(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	if contribution == nil {
		return nil, nil
	}
	log.WithFields(log.Fields{
		"redemption_id": redemptionID,
		"instance_id":   contribution.InstanceID,
	}).Debug("Redemption already counted, ignoring redelivery")
	return &ContributionOutcome{Instance: instance, Accepted: false}, nil
}

// refundUnlessCounted refunds a redemption that found no open instance. A
// concurrent delivery of the same redemption may have been counted meanwhile.
func (s *GamificationService) refundUnlessCounted(
	ctx context.Context,
	redemption entities.ChannelPointRedemption,
	reason string,
) (*ContributionOutcome, error) {
	if outcome, err := s.alreadyCounted(ctx, redemption.RedemptionID); err != nil || outcome != nil {
		return outcome, err
	}
	s.refund(ctx, redemption, reason)
	return nil, nil
}

func (s *GamificationService) refund(ctx context.Context, redemption entities.ChannelPointRedemption, reason string) {
	logger := log.WithFields(log.Fields{
		"redemption_id": redemption.RedemptionID,
		"reward_id":     redemption.RewardID,
		"reason":        reason,
	})
	if s.rewards == nil {
		logger.Warn("Cannot refund redemption: no Twitch reward client")
		return
	}
	err := s.rewards.UpdateRedemptionStatus(ctx, redemption.BroadcasterID, redemption.RewardID, redemption.RedemptionID, RedemptionStatusCanceled)
	if err != nil {
		logger.WithError(err).Error("Failed to refund redemption")
		return
	}
	logger.Info("Refunded redemption")
}

// executeArmed claims an armed instance and runs its action. It returns
// false when another caller already claimed it.
func (s *GamificationService) executeArmed(
	ctx context.Context,
	instance *entities.GamificationInstance,
	event *entities.GamificationEvent,
	config *entities.CampaignGamificationConfig,
	connectionID string,
) (bool, error) {
	claimed, err := s.instances.ClaimForExecution(ctx, instance, config.EffectiveCooldown(event))
	if err != nil {
		return false, err
	}
	if !claimed {
		log.WithField("instance_id", instance.ID).Debug("Instance already claimed for execution")
		return false, nil
	}

	result := s.executor.Execute(ctx, instance, event, connectionID)

	if err := s.instances.RecordExecution(ctx, instance, event, result); err != nil {
		return true, err
	}
	return true, nil
}

// ExecuteArmedInstances runs the action of every armed, unexecuted instance
// of a campaign. Instances run independently so one slow VTT call does not
// hold back the others. Returns how many actions ran.
func (s *GamificationService) ExecuteArmedInstances(ctx context.Context, campaignID uuid.UUID) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	open, err := uow.InstanceRepository().GetOpenByCampaign(ctx, campaignID)
	if err != nil {
		uow.Rollback()
		return 0, fmt.Errorf("failed to get open instances: %w", err)
	}
	campaign, err := uow.CampaignRepository().GetByID(ctx, campaignID)
	if err != nil {
		uow.Rollback()
		return 0, fmt.Errorf("failed to get campaign: %w", err)
	}
	enabled, err := s.enabledEvents(ctx, uow, campaignID)
	uow.Rollback()
	if err != nil {
		return 0, err
	}
	if campaign == nil {
		return 0, entities.ErrCampaignNotFound
	}

	byEvent := make(map[uuid.UUID]campaignEvent, len(enabled))
	for _, ce := range enabled {
		byEvent[ce.event.ID] = ce
	}

	var executed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelExecutions)

	for _, instance := range open {
		if instance.Status != entities.InstanceStatusArmed || instance.ExecutionStatus != entities.ExecutionStatusPending {
			continue
		}
		ce, ok := byEvent[instance.EventID]
		if !ok {
			log.WithField("instance_id", instance.ID).Warn("Armed instance has no enabled config, skipping execution")
			continue
		}

		g.Go(func() error {
			ran, err := s.executeArmed(gctx, instance, ce.event, ce.config, campaign.VTTConnectionID)
			if err != nil {
				log.WithError(err).WithField("instance_id", instance.ID).Error("Failed to execute armed instance")
				return nil
			}
			if ran {
				executed.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(executed.Load()), err
	}
	return int(executed.Load()), nil
}

// HandleRefund reverts the contribution of a refunded redemption
func (s *GamificationService) HandleRefund(ctx context.Context, redemptionID string) error {
	contribution, err := s.instances.RefundContribution(ctx, redemptionID)
	if err != nil {
		return err
	}
	if contribution != nil {
		log.WithFields(log.Fields{
			"redemption_id": redemptionID,
			"instance_id":   contribution.InstanceID,
		}).Info("Refunded contribution")
	}
	return nil
}

// CancelInstance cancels an open instance of a campaign
func (s *GamificationService) CancelInstance(ctx context.Context, instanceID, campaignID uuid.UUID, reason string) error {
	return s.instances.Cancel(ctx, instanceID, campaignID, reason)
}
