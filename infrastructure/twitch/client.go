package twitch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tumulte/domain/entities"

	"github.com/nicklaw5/helix/v2"
	log "github.com/sirupsen/logrus"
)

// twitchAuthBaseURL is where helix sends OAuth requests
const twitchAuthBaseURL = "https://id.twitch.tv/oauth2"

// UserTokenStore returns the user access token of a broadcaster. Tokens are
// provisioned by the web application that owns the OAuth flow.
type UserTokenStore interface {
	UserToken(ctx context.Context, broadcasterID string) (string, error)
}

// APIError is a non-2xx response from Helix
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitch api returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 to entities.ErrRemoteNotFound
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return entities.ErrRemoteNotFound
	}
	return nil
}

// Options configures a Client
type Options struct {
	ClientID     string
	ClientSecret string
	// APIBaseURL and AuthBaseURL point helix at another host, such as the
	// Twitch CLI mock server. Empty means production.
	APIBaseURL          string
	AuthBaseURL         string
	EventSubCallbackURL string
	EventSubSecret      string
	HTTPClient          *http.Client
}

// Client talks to the Twitch Helix API through nicklaw5/helix
type Client struct {
	opts   Options
	http   helix.HTTPClient
	tokens UserTokenStore

	mu          sync.Mutex
	appToken    string
	appTokenExp time.Time
	now         func() time.Time
}

// NewClient creates a new Helix client
func NewClient(opts Options, tokens UserTokenStore) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	opts.APIBaseURL = strings.TrimRight(opts.APIBaseURL, "/")
	opts.AuthBaseURL = strings.TrimRight(opts.AuthBaseURL, "/")
	return &Client{
		opts:   opts,
		http:   authRedirect{next: httpClient, authBase: opts.AuthBaseURL},
		tokens: tokens,
		now:    time.Now,
	}
}

// authRedirect sends helix OAuth requests to a configured auth host
type authRedirect struct {
	next     *http.Client
	authBase string
}

func (d authRedirect) Do(req *http.Request) (*http.Response, error) {
	if d.authBase == "" || d.authBase == twitchAuthBaseURL {
		return d.next.Do(req)
	}
	raw := req.URL.String()
	if !strings.HasPrefix(raw, twitchAuthBaseURL) {
		return d.next.Do(req)
	}
	target, err := url.Parse(d.authBase + strings.TrimPrefix(raw, twitchAuthBaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite auth url: %w", err)
	}
	redirected := req.Clone(req.Context())
	redirected.URL = target
	redirected.Host = target.Host
	return d.next.Do(redirected)
}

type tokenKind int

const (
	appToken tokenKind = iota
	userToken
)

type credential struct {
	kind          tokenKind
	broadcasterID string
}

func asApp() credential {
	return credential{kind: appToken}
}

func asBroadcaster(broadcasterID string) credential {
	return credential{kind: userToken, broadcasterID: broadcasterID}
}

// helixCall runs one helix request and returns the common part of its response
type helixCall func(h *helix.Client) (*helix.ResponseCommon, error)

// call runs fn on a helix client carrying the token of cred. An app token
// rejected with 401 is refreshed once.
func (c *Client) call(ctx context.Context, cred credential, fn helixCall) error {
	err := c.send(ctx, cred, fn)
	var apiErr *APIError
	if cred.kind == appToken && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		log.Debug("App access token rejected, refreshing")
		c.invalidateAppToken()
		err = c.send(ctx, cred, fn)
	}
	return err
}

func (c *Client) send(ctx context.Context, cred credential, fn helixCall) error {
	token, err := c.bearer(ctx, cred)
	if err != nil {
		return err
	}
	opts := c.helixOptions()
	if cred.kind == userToken {
		opts.UserAccessToken = token
	} else {
		opts.AppAccessToken = token
	}
	h, err := helix.NewClientWithContext(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to create helix client: %w", err)
	}

	common, err := fn(h)
	if err != nil {
		return err
	}
	return checkResponse(common)
}

func (c *Client) helixOptions() *helix.Options {
	return &helix.Options{
		ClientID:     c.opts.ClientID,
		ClientSecret: c.opts.ClientSecret,
		APIBaseURL:   c.opts.APIBaseURL,
		HTTPClient:   c.http,
	}
}

func (c *Client) bearer(ctx context.Context, cred credential) (string, error) {
	if cred.kind == userToken {
		if c.tokens == nil {
			return "", fmt.Errorf("no user token store configured")
		}
		token, err := c.tokens.UserToken(ctx, cred.broadcasterID)
		if err != nil {
			return "", fmt.Errorf("failed to get user token for %s: %w", cred.broadcasterID, err)
		}
		return token, nil
	}
	return c.getAppToken(ctx)
}

// checkResponse turns a non-2xx helix response into an APIError
func checkResponse(common *helix.ResponseCommon) error {
	if common == nil {
		return nil
	}
	if common.StatusCode >= 200 && common.StatusCode <= 299 {
		return nil
	}
	message := common.ErrorMessage
	if message == "" {
		message = common.Error
	}
	if message == "" {
		message = http.StatusText(common.StatusCode)
	}
	return &APIError{StatusCode: common.StatusCode, Message: message}
}
