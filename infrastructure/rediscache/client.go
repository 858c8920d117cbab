package rediscache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const keyPrefix = "tumulte:"

// Client wraps a go-redis client shared by the cache and the token store
type Client struct {
	rdb *redis.Client
}

// NewClient parses redisURL and creates a client. No connection is made until first use.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &Client{rdb: redis.NewClient(opts)}, nil
}

// Ping reports whether redis answers
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
	log.Info("Closing redis client")
	return c.rdb.Close()
}
