package twitch

import (
	"context"
	"fmt"

	"github.com/nicklaw5/helix/v2"
)

// SendChatMessage posts message in the broadcaster's chat as the broadcaster
func (c *Client) SendChatMessage(ctx context.Context, broadcasterID, message string) error {
	var messages []helix.ChatMessage
	err := c.call(ctx, asBroadcaster(broadcasterID), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.SendChatMessage(&helix.SendChatMessageParams{
			BroadcasterID: broadcasterID,
			SenderID:      broadcasterID,
			Message:       message,
		})
		if err != nil {
			return nil, err
		}
		messages = resp.Data.Messages
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}
	if len(messages) > 0 && !messages[0].IsSent {
		return fmt.Errorf("chat message dropped by twitch")
	}
	return nil
}

// GetViewerCount returns the live viewer count, 0 when the broadcaster is offline
func (c *Client) GetViewerCount(ctx context.Context, broadcasterID string) (int, error) {
	var streams []helix.Stream
	err := c.call(ctx, asApp(), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.GetStreams(&helix.StreamsParams{UserIDs: []string{broadcasterID}})
		if err != nil {
			return nil, err
		}
		streams = resp.Data.Streams
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get stream: %w", err)
	}
	if len(streams) == 0 {
		return 0, nil
	}
	return streams[0].ViewerCount, nil
}

// Poll is a Twitch chat poll
type Poll struct {
	ID     string
	Title  string
	Status string
}

// CreatePoll starts a poll on the broadcaster's channel
func (c *Client) CreatePoll(ctx context.Context, broadcasterID, title string, choices []string, duration int) (*Poll, error) {
	params := &helix.CreatePollParams{
		BroadcasterID: broadcasterID,
		Title:         title,
		Duration:      duration,
	}
	for _, choice := range choices {
		params.Choices = append(params.Choices, helix.PollChoiceParam{Title: choice})
	}

	var polls []helix.Poll
	err := c.call(ctx, asBroadcaster(broadcasterID), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.CreatePoll(params)
		if err != nil {
			return nil, err
		}
		polls = resp.Data.Polls
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}
	if len(polls) == 0 {
		return nil, fmt.Errorf("failed to create poll: empty response")
	}
	return &Poll{ID: polls[0].ID, Title: polls[0].Title, Status: polls[0].Status}, nil
}

// EndPoll ends a poll. status is TERMINATED to show results or ARCHIVED to hide them.
func (c *Client) EndPoll(ctx context.Context, broadcasterID, pollID, status string) error {
	err := c.call(ctx, asBroadcaster(broadcasterID), func(h *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := h.EndPoll(&helix.EndPollParams{
			BroadcasterID: broadcasterID,
			ID:            pollID,
			Status:        status,
		})
		if err != nil {
			return nil, err
		}
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return fmt.Errorf("failed to end poll %s: %w", pollID, err)
	}
	return nil
}
