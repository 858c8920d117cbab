package rediscache

import (
	"context"
	"fmt"
	"time"

	"tumulte/domain/entities"
)

// CooldownCache mirrors instance cooldowns as expiring keys
type CooldownCache struct {
	client *Client
	now    func() time.Time
}

// NewCooldownCache creates a cooldown cache on client
func NewCooldownCache(client *Client) *CooldownCache {
	return &CooldownCache{client: client, now: time.Now}
}

func cooldownKey(key entities.InstanceKey) string {
	streamer := "group"
	if key.StreamerID != nil {
		streamer = key.StreamerID.String()
	}
	return fmt.Sprintf("%scooldown:%s:%s:%s", keyPrefix, key.EventID, key.CampaignID, streamer)
}

// SetCooldown stores the key until the given time. Past times are ignored.
func (c *CooldownCache) SetCooldown(ctx context.Context, key entities.InstanceKey, until time.Time) error {
	ttl := until.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	if err := c.client.rdb.Set(ctx, cooldownKey(key), until.UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cooldown: %w", err)
	}
	return nil
}

// IsOnCooldown returns true while the key has not expired
func (c *CooldownCache) IsOnCooldown(ctx context.Context, key entities.InstanceKey) (bool, error) {
	n, err := c.client.rdb.Exists(ctx, cooldownKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cooldown: %w", err)
	}
	return n > 0, nil
}
