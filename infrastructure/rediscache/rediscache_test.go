package rediscache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewClient(fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not a url")
	assert.Error(t, err)
}

func TestCooldownKey(t *testing.T) {
	eventID := uuid.New()
	campaignID := uuid.New()
	streamerID := uuid.New()

	group := cooldownKey(entities.InstanceKey{EventID: eventID, CampaignID: campaignID})
	individual := cooldownKey(entities.InstanceKey{EventID: eventID, CampaignID: campaignID, StreamerID: &streamerID})

	assert.Equal(t, fmt.Sprintf("tumulte:cooldown:%s:%s:group", eventID, campaignID), group)
	assert.NotEqual(t, group, individual)
}

func TestCooldownCache(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	cache := NewCooldownCache(client)

	require.NoError(t, client.Ping(ctx))

	key := entities.InstanceKey{EventID: uuid.New(), CampaignID: uuid.New()}

	onCooldown, err := cache.IsOnCooldown(ctx, key)
	require.NoError(t, err)
	assert.False(t, onCooldown)

	require.NoError(t, cache.SetCooldown(ctx, key, time.Now().Add(time.Minute)))
	onCooldown, err = cache.IsOnCooldown(ctx, key)
	require.NoError(t, err)
	assert.True(t, onCooldown)

	past := entities.InstanceKey{EventID: uuid.New(), CampaignID: uuid.New()}
	require.NoError(t, cache.SetCooldown(ctx, past, time.Now().Add(-time.Minute)))
	onCooldown, err = cache.IsOnCooldown(ctx, past)
	require.NoError(t, err)
	assert.False(t, onCooldown)
}

func TestTokenStore(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	store := NewTokenStore(client)

	_, err := store.UserToken(ctx, "1234")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.SetUserToken(ctx, "1234", "user-token", time.Hour))
	token, err := store.UserToken(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, "user-token", token)
}
