package twitch

import (
	"context"
	"fmt"

	"tumulte/domain/interfaces"

	"github.com/nicklaw5/helix/v2"
	log "github.com/sirupsen/logrus"
)

// CreateCustomReward creates a channel point reward on the broadcaster's channel
func (c *Client) CreateCustomReward(ctx context.Context, broadcasterID string, req interfaces.CustomRewardRequest) (*interfaces.CustomReward, error) {
	params := &helix.ChannelCustomRewardsParams{
		BroadcasterID:                     broadcasterID,
		Title:                             req.Title,
		Cost:                              req.Cost,
		Prompt:                            req.Prompt,
		IsEnabled:                         req.IsEnabled,
		BackgroundColor:                   req.BackgroundColor,
		IsUserInputRequired:               req.IsUserInputRequired,
		ShouldRedemptionsSkipRequestQueue: req.ShouldSkipRequestQueue,
	}
	if req.GlobalCooldownSeconds > 0 {
		params.IsGlobalCooldownEnabled = true
		params.GlobalCooldownSeconds = req.GlobalCooldownSeconds
	}

	var rewards []helix.ChannelCustomReward
	err := c.call(ctx, asBroadcaster(broadcasterID), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.CreateCustomReward(params)
		if err != nil {
			return nil, err
		}
		rewards = resp.Data.ChannelCustomRewards
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create custom reward: %w", err)
	}
	if len(rewards) == 0 {
		return nil, fmt.Errorf("failed to create custom reward: empty response")
	}

	reward := rewards[0]
	log.WithFields(log.Fields{
		"broadcaster_id": broadcasterID,
		"reward_id":      reward.ID,
		"cost":           reward.Cost,
	}).Info("Created Twitch custom reward")

	return &interfaces.CustomReward{
		ID:        reward.ID,
		Title:     reward.Title,
		Cost:      reward.Cost,
		IsEnabled: reward.IsEnabled,
		IsPaused:  reward.IsPaused,
	}, nil
}

// UpdateCustomReward changes the cost of a reward
func (c *Client) UpdateCustomReward(ctx context.Context, broadcasterID, rewardID string, cost int) error {
	err := c.call(ctx, asBroadcaster(broadcasterID), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.UpdateCustomReward(&helix.UpdateChannelCustomRewardsParams{
			ID:            rewardID,
			BroadcasterID: broadcasterID,
			Cost:          cost,
		})
		if err != nil {
			return nil, err
		}
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return fmt.Errorf("failed to update custom reward %s: %w", rewardID, err)
	}
	return nil
}

// DeleteCustomReward deletes a reward. A reward already gone yields ErrRemoteNotFound.
func (c *Client) DeleteCustomReward(ctx context.Context, broadcasterID, rewardID string) error {
	err := c.call(ctx, asBroadcaster(broadcasterID), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.DeleteCustomRewards(&helix.DeleteCustomRewardsParams{
			BroadcasterID: broadcasterID,
			ID:            rewardID,
		})
		if err != nil {
			return nil, err
		}
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete custom reward %s: %w", rewardID, err)
	}
	return nil
}

// UpdateRedemptionStatus sets a redemption to FULFILLED or CANCELED
func (c *Client) UpdateRedemptionStatus(ctx context.Context, broadcasterID, rewardID, redemptionID, status string) error {
	err := c.call(ctx, asBroadcaster(broadcasterID), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.UpdateChannelCustomRewardsRedemptionStatus(&helix.UpdateChannelCustomRewardsRedemptionStatusParams{
			ID:            redemptionID,
			BroadcasterID: broadcasterID,
			RewardID:      rewardID,
			Status:        status,
		})
		if err != nil {
			return nil, err
		}
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return fmt.Errorf("failed to set redemption %s to %s: %w", redemptionID, status, err)
	}
	return nil
}
