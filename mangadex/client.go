package mangadex

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Production and sandbox hosts.
const (
	APIURL     = "https://api.mangadex.org"
	DevAPIURL  = "https://api.mangadex.dev"
	AuthURL    = "https://auth.mangadex.org/realms/mangadex/protocol/openid-connect"
	DevAuthURL = "https://auth.mangadex.dev/realms/mangadex/protocol/openid-connect"
)

// DevEnvVar switches new clients to the sandbox when set to a true value.
const DevEnvVar = "DEXTER_API_DEV"

// Version is reported in the default user agent. It is overridden at build
// time by the CLI.
var Version = "dev"

// DefaultUserAgent identifies the client to MangaDex.
func DefaultUserAgent() string {
	return "dexter/" + Version + " (+https://github.com/s0up4200/dexter)"
}

// Client represents a MangaDex API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	authURL    string
	httpClient *http.Client
	userAgent  string
	retry      RetryPolicy
	logger     zerolog.Logger

	session *Session
	limiter *rateLimiter
	catalog *Catalog

	sleep func(context.Context, time.Duration) error
}

// NewClient creates a new MangaDex client. Empty credentials give an
// anonymous client that can only call public endpoints.
func NewClient(creds Credentials, logger zerolog.Logger, opts ...Option) (*Client, error) {
	o := defaultOptions()
	if dev, _ := strconv.ParseBool(os.Getenv(DevEnvVar)); dev {
		o.dev = true
	}
	for _, opt := range opts {
		opt(o)
	}

	if (creds.ClientID == "") != (creds.ClientSecret == "") {
		return nil, fmt.Errorf("%w: client id and client secret must be set together", ErrInvalidConfig)
	}
	if (creds.Username != "" || creds.Password != "" || creds.RefreshToken != "") && creds.ClientID == "" {
		return nil, fmt.Errorf("%w: client id and client secret are required for authentication", ErrInvalidConfig)
	}
	if (creds.Username == "") != (creds.Password == "") {
		return nil, fmt.Errorf("%w: username and password must be set together", ErrInvalidConfig)
	}
	if err := o.retry.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if o.baseURL == "" {
		o.baseURL = APIURL
		if o.dev {
			o.baseURL = DevAPIURL
		}
	}
	if o.authURL == "" {
		o.authURL = AuthURL
		if o.dev {
			o.authURL = DevAuthURL
		}
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	if o.catalog == nil {
		o.catalog = NewCatalog()
	}

	if creds.RefreshToken == "" && o.tokenStore != nil {
		rt, err := o.tokenStore.Load()
		if err != nil {
			logger.Warn().Err(err).Msg("Ignoring unreadable token store")
		}
		creds.RefreshToken = rt
	}

	c := &Client{
		baseURL:    strings.TrimRight(o.baseURL, "/"),
		authURL:    strings.TrimRight(o.authURL, "/"),
		httpClient: o.httpClient,
		userAgent:  o.userAgent,
		retry:      o.retry,
		logger:     logger,
		catalog:    o.catalog,
		sleep:      sleepCtx,
	}
	c.limiter = newRateLimiter(func(ctx context.Context, d time.Duration) error {
		return c.sleep(ctx, d)
	})
	c.session = newSession(c.authURL, creds, o, logger)

	logger.Debug().
		Str("api", c.baseURL).
		Str("auth", c.authURL).
		Bool("password_grant", creds.CanLogin()).
		Bool("refresh_token", creds.RefreshToken != "").
		Msg("MangaDex client configured")

	return c, nil
}

// Session exposes the token session.
func (c *Client) Session() *Session {
	return c.session
}

// Catalog exposes the local tag and report reason tables.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// BaseURL returns the API host in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login authenticates with the password grant.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	return c.session.Login(ctx, creds)
}

// Logout ends the session locally and on the auth server.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.Logout(ctx)
}

// Ping checks that the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, body, err := c.execute(ctx, MustRoute(http.MethodGet, "/ping", nil), nil)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(body)) != "pong" {
		return fmt.Errorf("unexpected ping response: %q", body)
	}
	return nil
}
