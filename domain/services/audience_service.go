package services

import (
	"context"
	"fmt"

	"tumulte/domain/entities"
	"tumulte/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AudienceService provides the viewer counts used to size objectives.
// Individual events count the viewers of one streamer; campaign events sum
// every member channel.
type AudienceService struct {
	uowFactory interfaces.UnitOfWorkFactory
	viewers    interfaces.ViewerCounter
}

// NewAudienceService creates an audience service
func NewAudienceService(uowFactory interfaces.UnitOfWorkFactory, viewers interfaces.ViewerCounter) *AudienceService {
	return &AudienceService{uowFactory: uowFactory, viewers: viewers}
}

// GetStreamerContext returns the audience of a streamer, or of the whole campaign when streamerID is nil
func (s *AudienceService) GetStreamerContext(ctx context.Context, campaignID uuid.UUID, streamerID *uuid.UUID) (entities.StreamerContext, error) {
	streamers, err := s.audienceOf(ctx, campaignID, streamerID)
	if err != nil {
		return entities.StreamerContext{}, err
	}

	total := 0
	for _, st := range streamers {
		count, err := s.viewers.GetViewerCount(ctx, st.TwitchUserID)
		if err != nil {
			// an offline or unreachable channel counts as zero viewers
			log.WithError(err).WithFields(log.Fields{
				"campaign_id": campaignID,
				"streamer_id": st.ID,
			}).Warn("Failed to get viewer count")
			continue
		}
		total += count
	}

	return entities.StreamerContext{ViewerCount: total}, nil
}

func (s *AudienceService) audienceOf(ctx context.Context, campaignID uuid.UUID, streamerID *uuid.UUID) ([]*entities.Streamer, error) {
	uow := s.uowFactory.Create()
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
			return nil, fmt.Errorf("streamer %s not found", *streamerID)
		}
		return []*entities.Streamer{streamer}, nil
	}

	members, err := uow.CampaignRepository().GetMemberStreamers(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member streamers: %w", err)
	}
	return members, nil
}
