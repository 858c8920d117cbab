package twitch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tumulte/domain/interfaces"

	"github.com/nicklaw5/helix/v2"
)

// refresh the app token this long before Twitch expires it
const appTokenSkew = time.Minute

func (c *Client) getAppToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.appToken != "" && c.now().Before(c.appTokenExp) {
		return c.appToken, nil
	}

	h, err := helix.NewClientWithContext(ctx, c.helixOptions())
	if err != nil {
		return "", fmt.Errorf("failed to create helix client: %w", err)
	}
	resp, err := h.RequestAppAccessToken(nil)
	if err != nil {
		return "", fmt.Errorf("failed to request app token: %w", err)
	}
	if err := checkResponse(&resp.ResponseCommon); err != nil {
		return "", err
	}

	c.appToken = resp.Data.AccessToken
	c.appTokenExp = c.now().Add(time.Duration(resp.Data.ExpiresIn)*time.Second - appTokenSkew)
	return c.appToken, nil
}

func (c *Client) invalidateAppToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appToken = ""
}

// ValidateToken checks the broadcaster's user token against the OAuth validate endpoint
func (c *Client) ValidateToken(ctx context.Context, broadcasterID string) (*interfaces.TokenInfo, error) {
	token, err := c.bearer(ctx, asBroadcaster(broadcasterID))
	if err != nil {
		return nil, err
	}

	h, err := helix.NewClientWithContext(ctx, c.helixOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}
	valid, resp, err := h.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !valid {
		if resp != nil && resp.StatusCode != http.StatusOK {
			if apiErr := checkResponse(&resp.ResponseCommon); apiErr != nil {
				return nil, apiErr
			}
		}
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: "invalid access token"}
	}

	return &interfaces.TokenInfo{
		UserID:    resp.Data.UserID,
		Login:     resp.Data.Login,
		Scopes:    resp.Data.Scopes,
		ExpiresIn: time.Duration(resp.Data.ExpiresIn) * time.Second,
	}, nil
}
