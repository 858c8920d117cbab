package twitch

import (
	"context"
	"fmt"

	"tumulte/domain/entities"

	"github.com/nicklaw5/helix/v2"
)

func toRemote(s helix.EventSubSubscription) entities.RemoteSubscription {
	return entities.RemoteSubscription{
		ID:            s.ID,
		Type:          s.Type,
		Status:        s.Status,
		BroadcasterID: s.Condition.BroadcasterUserID,
	}
}

// CreateEventSubSubscription subscribes a webhook to subType for the broadcaster
func (c *Client) CreateEventSubSubscription(ctx context.Context, subType, broadcasterID string) (*entities.RemoteSubscription, error) {
	payload := &helix.EventSubSubscription{
		Type:      subType,
		Version:   "1",
		Condition: helix.EventSubCondition{BroadcasterUserID: broadcasterID},
		Transport: helix.EventSubTransport{
			Method:   "webhook",
			Callback: c.opts.EventSubCallbackURL,
			Secret:   c.opts.EventSubSecret,
		},
	}

	var subs []helix.EventSubSubscription
	err := c.call(ctx, asApp(), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.CreateEventSubSubscription(payload)
		if err != nil {
			return nil, err
		}
		subs = resp.Data.EventSubSubscriptions
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s subscription: %w", subType, err)
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("failed to create %s subscription: empty response", subType)
	}

	remote := toRemote(subs[0])
	return &remote, nil
}

// ListEventSubSubscriptions lists every subscription of the broadcaster, following pagination
func (c *Client) ListEventSubSubscriptions(ctx context.Context, broadcasterID string) ([]entities.RemoteSubscription, error) {
	var subs []entities.RemoteSubscription
	cursor := ""

	for {
		var (
			page []helix.EventSubSubscription
			next string
		)
		err := c.call(ctx, asApp(), func(h *helix.Client) (*helix.ResponseCommon, error) {
			resp, err := h.GetEventSubSubscriptions(&helix.EventSubSubscriptionsParams{After: cursor})
			if err != nil {
				return nil, err
			}
			page = resp.Data.EventSubSubscriptions
			next = resp.Data.Pagination.Cursor
			return &resp.ResponseCommon, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}

		for _, s := range page {
			if s.Condition.BroadcasterUserID == broadcasterID {
				subs = append(subs, toRemote(s))
			}
		}

		if next == "" || next == cursor {
			return subs, nil
		}
		cursor = next
	}
}

// DeleteEventSubSubscription removes a subscription by id
func (c *Client) DeleteEventSubSubscription(ctx context.Context, subscriptionID string) error {
	err := c.call(ctx, asApp(), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.RemoveEventSubSubscription(subscriptionID)
		if err != nil {
			return nil, err
		}
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", subscriptionID, err)
	}
	return nil
}
