package application

import (
	"context"
	"errors"
	"testing"

	"tumulte/domain/entities"
	"tumulte/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTwitchChatNotifier_NotifyCampaign(t *testing.T) {
	campaignID := uuid.New()
	owner := &entities.Streamer{ID: uuid.New(), TwitchUserID: "1001", TwitchLogin: "owner"}
	member := &entities.Streamer{ID: uuid.New(), TwitchUserID: "1002", TwitchLogin: "member"}

	t.Run("nil streamer targets every member", func(t *testing.T) {
		campaigns := &testhelpers.MockCampaignRepository{}
		campaigns.On("GetMemberStreamers", mock.Anything, campaignID).Return([]*entities.Streamer{owner, member}, nil)
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{Campaigns: campaigns})

		chat := &testhelpers.MockTwitchChat{}
		chat.On("SendChatMessage", mock.Anything, "1001", "Chat strikes!").Return(nil)
		chat.On("SendChatMessage", mock.Anything, "1002", "Chat strikes!").Return(errors.New("banned"))

		err := NewTwitchChatNotifier(factory, chat).NotifyCampaign(context.Background(), campaignID, nil, "Chat strikes!")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "member")
		chat.AssertExpectations(t)
	})

	t.Run("streamer id targets one chat", func(t *testing.T) {
		streamers := &testhelpers.MockStreamerRepository{}
		streamers.On("GetByID", mock.Anything, member.ID).Return(member, nil)
		factory := testhelpers.NewFakeUnitOfWorkFactory(testhelpers.FakeRepositories{Streamers: streamers})

		chat := &testhelpers.MockTwitchChat{}
		chat.On("SendChatMessage", mock.Anything, "1002", "hello").Return(nil)

		require.NoError(t, NewTwitchChatNotifier(factory, chat).NotifyCampaign(context.Background(), campaignID, &member.ID, "hello"))
		chat.AssertNumberOfCalls(t, "SendChatMessage", 1)
	})
}
