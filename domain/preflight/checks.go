package preflight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tumulte/domain/actions"
	"tumulte/domain/entities"
	"tumulte/domain/interfaces"
)

// Pinger is anything that can report whether a backing store answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionChecker reports whether a VTT session is live
type ConnectionChecker interface {
	IsConnected(connectionID string) bool
}

// RequiredRewardScopes are the OAuth scopes channel point rewards need
var RequiredRewardScopes = []string{
	"channel:manage:redemptions",
	"channel:read:redemptions",
}

// ChatScope is the OAuth scope chat notifications need
const ChatScope = "user:write:chat"

// tokenExpiryWarning flags tokens that will not last a session
const tokenExpiryWarning = time.Hour

// RedisCheck verifies the cooldown cache answers
type RedisCheck struct {
	redis Pinger
}

func NewRedisCheck(redis Pinger) *RedisCheck {
	return &RedisCheck{redis: redis}
}

func (c *RedisCheck) Name() string        { return "redis" }
func (c *RedisCheck) Priority() int       { return 0 }
func (c *RedisCheck) AppliesTo() []string { return []string{AllEventTypes} }

func (c *RedisCheck) Execute(ctx context.Context, _ CheckContext) entities.CheckResult {
	if err := c.redis.Ping(ctx); err != nil {
		return fail(c.Name(), fmt.Sprintf("Redis is unreachable: %v", err), "Check REDIS_URL and that the Redis server is running")
	}
	return pass(c.Name(), "Redis is reachable")
}

// WebSocketCheck verifies the campaign's VTT session is connected
type WebSocketCheck struct {
	connections ConnectionChecker
}

func NewWebSocketCheck(connections ConnectionChecker) *WebSocketCheck {
	return &WebSocketCheck{connections: connections}
}

func (c *WebSocketCheck) Dependency() actions.Dependency { return actions.DependencyVTTConnection }

func (c *WebSocketCheck) Name() string        { return "websocket" }
func (c *WebSocketCheck) Priority() int       { return 1 }
func (c *WebSocketCheck) AppliesTo() []string { return []string{AllEventTypes} }

func (c *WebSocketCheck) Execute(_ context.Context, cctx CheckContext) entities.CheckResult {
	if cctx.Campaign == nil || cctx.Campaign.VTTConnectionID == "" {
		return fail(c.Name(), "Campaign has no VTT connection", "Link a Foundry world to the campaign")
	}
	if !c.connections.IsConnected(cctx.Campaign.VTTConnectionID) {
		result := fail(c.Name(), "Foundry module is not connected", "Open the Foundry world with the Tumulte module enabled")
		result.Details = map[string]any{"connectionId": cctx.Campaign.VTTConnectionID}
		return result
	}
	return pass(c.Name(), "Foundry module is connected")
}

// TokenValidityCheck verifies every member streamer has a usable Twitch token
type TokenValidityCheck struct {
	tokens interfaces.TokenValidator
}

func NewTokenValidityCheck(tokens interfaces.TokenValidator) *TokenValidityCheck {
	return &TokenValidityCheck{tokens: tokens}
}

func (c *TokenValidityCheck) Name() string        { return "token_validity" }
func (c *TokenValidityCheck) Priority() int       { return 5 }
func (c *TokenValidityCheck) AppliesTo() []string { return []string{AllEventTypes} }

func (c *TokenValidityCheck) Execute(ctx context.Context, cctx CheckContext) entities.CheckResult {
	var invalid, missingScopes, expiring []string

	for _, s := range cctx.Streamers {
		info, err := c.tokens.ValidateToken(ctx, s.TwitchUserID)
		if err != nil || info == nil {
			invalid = append(invalid, s.TwitchLogin)
			continue
		}
		if missing := missingScopesOf(info.Scopes); len(missing) > 0 {
			missingScopes = append(missingScopes, fmt.Sprintf("%s (%s)", s.TwitchLogin, strings.Join(missing, ", ")))
		}
		if info.ExpiresIn < tokenExpiryWarning {
			expiring = append(expiring, s.TwitchLogin)
		}
	}

	if len(invalid) > 0 || len(missingScopes) > 0 {
		result := fail(c.Name(), "Some streamers cannot manage channel point rewards", "Ask the listed streamers to reconnect their Twitch account")
		result.Details = map[string]any{"invalid": invalid, "missingScopes": missingScopes}
		return result
	}

	result := pass(c.Name(), fmt.Sprintf("%d streamer token(s) valid", len(cctx.Streamers)))
	if len(expiring) > 0 {
		result.Warning = true
		result.Details = map[string]any{"expiringSoon": expiring}
	}
	return result
}

func missingScopesOf(scopes []string) []string {
	have := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		have[s] = true
	}
	var missing []string
	for _, s := range RequiredRewardScopes {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

// TwitchChatCheck verifies every member streamer may post in their own chat
type TwitchChatCheck struct {
	tokens interfaces.TokenValidator
}

func NewTwitchChatCheck(tokens interfaces.TokenValidator) *TwitchChatCheck {
	return &TwitchChatCheck{tokens: tokens}
}

func (c *TwitchChatCheck) Dependency() actions.Dependency { return actions.DependencyTwitchChat }

func (c *TwitchChatCheck) Name() string        { return "twitch_chat" }
func (c *TwitchChatCheck) Priority() int       { return 6 }
func (c *TwitchChatCheck) AppliesTo() []string { return []string{AllEventTypes} }

func (c *TwitchChatCheck) Execute(ctx context.Context, cctx CheckContext) entities.CheckResult {
	var denied []string
	for _, s := range cctx.Streamers {
		info, err := c.tokens.ValidateToken(ctx, s.TwitchUserID)
		if err != nil || info == nil || !hasScope(info.Scopes, ChatScope) {
			denied = append(denied, s.TwitchLogin)
		}
	}
	if len(denied) > 0 {
		result := fail(c.Name(), "Some streamers cannot post in their chat", fmt.Sprintf("Ask the listed streamers to reconnect Twitch and grant %s", ChatScope))
		result.Details = map[string]any{"denied": denied}
		return result
	}
	return pass(c.Name(), "Chat notifications can be sent")
}

func hasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// GamificationConfigCheck verifies the event is enabled for the campaign and its reward is live
type GamificationConfigCheck struct {
	uowFactory interfaces.UnitOfWorkFactory
}

func NewGamificationConfigCheck(uowFactory interfaces.UnitOfWorkFactory) *GamificationConfigCheck {
	return &GamificationConfigCheck{uowFactory: uowFactory}
}

func (c *GamificationConfigCheck) Name() string        { return "gamification_config" }
func (c *GamificationConfigCheck) Priority() int       { return 20 }
func (c *GamificationConfigCheck) AppliesTo() []string { return []string{AllEventTypes} }

func (c *GamificationConfigCheck) Execute(ctx context.Context, cctx CheckContext) entities.CheckResult {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fail(c.Name(), fmt.Sprintf("Database unavailable: %v", err), "")
	}
	defer uow.Rollback()

	if cctx.EventType == "" || cctx.EventType == AllEventTypes {
		configs, err := uow.ConfigRepository().GetEnabledByCampaign(ctx, cctx.CampaignID)
		if err != nil {
			return fail(c.Name(), fmt.Sprintf("Failed to load configs: %v", err), "")
		}
		if len(configs) == 0 {
			return fail(c.Name(), "No gamification event is enabled for this campaign", "Enable at least one event in the campaign settings")
		}
		return pass(c.Name(), fmt.Sprintf("%d event(s) enabled", len(configs)))
	}

	event, err := uow.EventRepository().GetBySlug(ctx, cctx.EventType)
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("Failed to load event: %v", err), "")
	}
	if event == nil {
		return fail(c.Name(), fmt.Sprintf("Unknown event %q", cctx.EventType), "")
	}

	config, err := uow.ConfigRepository().GetByCampaignAndEvent(ctx, cctx.CampaignID, event.ID)
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("Failed to load config: %v", err), "")
	}
	if config == nil || !config.IsEnabled {
		return fail(c.Name(), fmt.Sprintf("Event %q is not enabled for this campaign", event.Name), "Enable the event in the campaign settings")
	}

	result := pass(c.Name(), fmt.Sprintf("Event %q is enabled", event.Name))
	if config.TwitchRewardStatus != entities.RewardStatusActive {
		result.Warning = true
		result.Details = map[string]any{"rewardStatus": config.TwitchRewardStatus}
	}
	return result
}
