package twitch

import "tumulte/domain/interfaces"

var (
	_ interfaces.RewardClient   = (*Client)(nil)
	_ interfaces.EventSubClient = (*Client)(nil)
	_ interfaces.TokenValidator = (*Client)(nil)
	_ interfaces.ViewerCounter  = (*Client)(nil)
	_ interfaces.TwitchChat     = (*Client)(nil)
)
