package application

import (
	"context"
	"errors"
	"fmt"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TwitchChatNotifier posts gamification outcomes in the chats of a campaign's streamers
type TwitchChatNotifier struct {
	uowFactory interfaces.UnitOfWorkFactory
	chat       interfaces.TwitchChat
}

var _ interfaces.ChatNotifier = (*TwitchChatNotifier)(nil)

// NewTwitchChatNotifier creates a new chat notifier
func NewTwitchChatNotifier(uowFactory interfaces.UnitOfWorkFactory, chat interfaces.TwitchChat) *TwitchChatNotifier {
	return &TwitchChatNotifier{uowFactory: uowFactory, chat: chat}
}

// NotifyCampaign sends message to streamerID's chat, or to every member when nil
func (n *TwitchChatNotifier) NotifyCampaign(ctx context.Context, campaignID uuid.UUID, streamerID *uuid.UUID, message string) error {
	targets, err := n.targets(ctx, campaignID, streamerID)
	if err != nil {
		return err
	}

	var errs []error
	for _, streamer := range targets {
		if err := n.chat.SendChatMessage(ctx, streamer.TwitchUserID, message); err != nil {
			log.WithFields(log.Fields{
				"campaign_id": campaignID,
				"streamer":    streamer.TwitchLogin,
				"error":       err,
			}).Error("Failed to send chat notification")
			errs = append(errs, fmt.Errorf("streamer %s: %w", streamer.TwitchLogin, err))
		}
	}
	return errors.Join(errs...)
}

func (n *TwitchChatNotifier) targets(ctx context.Context, campaignID uuid.UUID, streamerID *uuid.UUID) ([]*entities.Streamer, error) {
	uow := n.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if streamerID != nil {
		streamer, err := uow.StreamerRepository().GetByID(ctx, *streamerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get streamer: %w", err)
		}
		if streamer == nil {
			return nil, nil
		}
		return []*entities.Streamer{streamer}, nil
	}

	members, err := uow.CampaignRepository().GetMemberStreamers(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign members: %w", err)
	}
	return members, nil
}
