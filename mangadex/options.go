package mangadex

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	baseURL     string
	authURL     string
	dev         bool
	timeout     time.Duration
	httpClient  *http.Client
	userAgent   string
	retry       RetryPolicy
	clockSkew   time.Duration
	tokenStore  TokenStore
	redirectURL string
	catalog     *Catalog
}

func defaultOptions() *clientOptions {
	return &clientOptions{
		timeout:   30 * time.Second,
		userAgent: DefaultUserAgent(),
		retry:     DefaultRetryPolicy(),
		clockSkew: DefaultClockSkew,
	}
}

// WithTimeout sets the HTTP client timeout. Token grants use the same bound.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = hc
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithDevAPI targets the MangaDex sandbox instead of production.
func WithDevAPI() Option {
	return func(o *clientOptions) {
		o.dev = true
	}
}

// WithBaseURL overrides the API host.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithAuthURL overrides the OpenID Connect endpoint prefix.
func WithAuthURL(authURL string) Option {
	return func(o *clientOptions) {
		o.authURL = authURL
	}
}

// WithRetryPolicy sets the retry behaviour for 503 and 429 responses.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *clientOptions) {
		o.retry = p
	}
}

// WithClockSkew sets how long before expiry a token is considered stale.
func WithClockSkew(d time.Duration) Option {
	return func(o *clientOptions) {
		if d >= 0 {
			o.clockSkew = d
		}
	}
}

// WithTokenStore persists refresh tokens after every grant.
func WithTokenStore(store TokenStore) Option {
	return func(o *clientOptions) {
		o.tokenStore = store
	}
}

// WithRedirectURL sets the redirect URL for the authorization code flow.
func WithRedirectURL(redirectURL string) Option {
	return func(o *clientOptions) {
		o.redirectURL = redirectURL
	}
}

// WithCatalog supplies preloaded tag and report reason tables.
func WithCatalog(c *Catalog) Option {
	return func(o *clientOptions) {
		o.catalog = c
	}
}
