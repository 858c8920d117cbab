package repository

import (
	"context"
	"testing"
	"time"

	"tumulte/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGamificationContributionRepository(t *testing.T) {
	f := setupInstanceFixture(t)
	ctx := context.Background()
	repo := NewGamificationContributionRepository(f.db.DB)

	instance := f.newInstance(nil, time.Now().Add(time.Minute))
	require.NoError(t, f.repo.Create(ctx, instance))

	contribution := func(redemptionID, user string) *entities.GamificationContribution {
		return &entities.GamificationContribution{
			InstanceID:         instance.ID,
			StreamerID:         &f.owner.ID,
			TwitchUserID:       user,
			TwitchUsername:     "viewer_" + user,
			TwitchRedemptionID: redemptionID,
		}
	}

	t.Run("duplicate redemption is ignored", func(t *testing.T) {
		created, err := repo.Create(ctx, contribution("redemption-a", "v1"))
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.Create(ctx, contribution("redemption-a", "v2"))
		require.NoError(t, err)
		assert.False(t, created)

		stored, err := repo.GetByRedemptionID(ctx, "redemption-a")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "v1", stored.TwitchUserID)
		assert.Equal(t, 1, stored.Amount)
	})

	t.Run("contributions are listed in arrival order", func(t *testing.T) {
		created, err := repo.Create(ctx, contribution("redemption-b", "v3"))
		require.NoError(t, err)
		assert.True(t, created)

		list, err := repo.GetByInstance(ctx, instance.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "redemption-a", list[0].TwitchRedemptionID)
		assert.Equal(t, "redemption-b", list[1].TwitchRedemptionID)
	})

	t.Run("refund is recorded once", func(t *testing.T) {
		stored, err := repo.GetByRedemptionID(ctx, "redemption-b")
		require.NoError(t, err)

		first := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.MarkRefunded(ctx, stored.ID, first))
		require.NoError(t, repo.MarkRefunded(ctx, stored.ID, first.Add(time.Hour)))

		stored, err = repo.GetByRedemptionID(ctx, "redemption-b")
		require.NoError(t, err)
		assert.True(t, stored.Refunded)
		require.NotNil(t, stored.RefundedAt)
		assert.True(t, first.Equal(*stored.RefundedAt))
	})

	t.Run("unknown redemption", func(t *testing.T) {
		stored, err := repo.GetByRedemptionID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}
