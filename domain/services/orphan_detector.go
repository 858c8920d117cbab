package services

import (
	"context"
	"fmt"
	"time"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"
)

// OrphanDetector finds rewards whose remote deletion failed
type OrphanDetector struct {
	uowFactory interfaces.UnitOfWorkFactory
}

// NewOrphanDetector creates an orphan detector
func NewOrphanDetector(uowFactory interfaces.UnitOfWorkFactory) *OrphanDetector {
	return &OrphanDetector{uowFactory: uowFactory}
}

// FindOrphanedConfigs returns every config whose reward is orphaned
func (d *OrphanDetector) FindOrphanedConfigs(ctx context.Context) ([]*entities.CampaignGamificationConfig, error) {
	uow := d.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	configs, err := uow.ConfigRepository().GetByRewardStatus(ctx, entities.RewardStatusOrphaned)
	if err != nil {
		return nil, fmt.Errorf("failed to get orphaned configs: %w", err)
	}
	return configs, nil
}

// FindOrphansDueForRetry returns the orphaned configs whose next retry time has passed
func (d *OrphanDetector) FindOrphansDueForRetry(ctx context.Context, now time.Time) ([]*entities.CampaignGamificationConfig, error) {
	configs, err := d.FindOrphanedConfigs(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*entities.CampaignGamificationConfig, 0, len(configs))
	for _, c := range configs {
		if c.IsDueForRetry(now) {
			due = append(due, c)
		}
	}
	return due, nil
}

// FindOrphanedStreamerRewards returns every per-streamer reward that is orphaned
func (d *OrphanDetector) FindOrphanedStreamerRewards(ctx context.Context) ([]*entities.StreamerReward, error) {
	uow := d.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rewards, err := uow.StreamerRewardRepository().GetByRewardStatus(ctx, entities.RewardStatusOrphaned)
	if err != nil {
		return nil, fmt.Errorf("failed to get orphaned streamer rewards: %w", err)
	}
	return rewards, nil
}

// FindStreamerRewardsDueForRetry returns the orphaned streamer rewards due at now
func (d *OrphanDetector) FindStreamerRewardsDueForRetry(ctx context.Context, now time.Time) ([]*entities.StreamerReward, error) {
	rewards, err := d.FindOrphanedStreamerRewards(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*entities.StreamerReward, 0, len(rewards))
	for _, r := range rewards {
		if r.IsDueForRetry(now) {
			due = append(due, r)
		}
	}
	return due, nil
}
