package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when no token is stored for a broadcaster
var ErrTokenNotFound = errors.New("no user token stored for broadcaster")

// TokenStore holds broadcaster user access tokens written by the web application
type TokenStore struct {
	client *Client
}

// NewTokenStore creates a token store on client
func NewTokenStore(client *Client) *TokenStore {
	return &TokenStore{client: client}
}

func tokenKey(broadcasterID string) string {
	return keyPrefix + "twitch:token:" + broadcasterID
}

// UserToken returns the stored access token of broadcasterID
func (s *TokenStore) UserToken(ctx context.Context, broadcasterID string) (string, error) {
	token, err := s.client.rdb.Get(ctx, tokenKey(broadcasterID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read user token: %w", err)
	}
	return token, nil
}

// SetUserToken stores a token for ttl. A zero ttl keeps it until replaced.
func (s *TokenStore) SetUserToken(ctx context.Context, broadcasterID, token string, ttl time.Duration) error {
	if err := s.client.rdb.Set(ctx, tokenKey(broadcasterID), token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store user token: %w", err)
	}
	return nil
}
