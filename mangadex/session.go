package mangadex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// DefaultClockSkew is how long before expiry an access token stops being
// handed out.
const DefaultClockSkew = 30 * time.Second

// flightKey is the single slot every login and refresh shares.
const flightKey = "token"

// SessionInfo is a snapshot of the session for display.
type SessionInfo struct {
	State           SessionState
	AccessExpiry    time.Time
	RefreshExpiry   time.Time
	HasRefreshToken bool
	Claims          *Claims
}

// Session owns the access/refresh token pair. At most one login or refresh is
// in flight at any time and every caller waiting on it observes the same
// result. It is safe for concurrent use.
type Session struct {
	oauth      *oauth2.Config
	logoutURL  string
	httpClient *http.Client
	timeout    time.Duration
	skew       time.Duration
	tokenStore TokenStore
	logger     zerolog.Logger
	now        func() time.Time

	flight singleflight.Group

	mu         sync.Mutex
	creds      Credentials
	tokens     *tokenSet
	state      SessionState
	generation uint64
	lastLogin  Credentials
}

func newSession(authBase string, creds Credentials, o *clientOptions, logger zerolog.Logger) *Session {
	authBase = strings.TrimRight(authBase, "/")
	s := &Session{
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authBase + "/auth",
				TokenURL:  authBase + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: o.redirectURL,
			Scopes:      []string{"openid"},
		},
		logoutURL:  authBase + "/logout",
		httpClient: o.httpClient,
		timeout:    o.timeout,
		skew:       o.clockSkew,
		tokenStore: o.tokenStore,
		logger:     logger.With().Str("component", "session").Logger(),
		now:        time.Now,
		creds:      creds,
	}

	if creds.RefreshToken != "" {
		s.tokens = &tokenSet{refresh: creds.RefreshToken}
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns a snapshot of the token bookkeeping.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{State: s.state}
	if s.tokens != nil {
		info.AccessExpiry = s.tokens.accessExpiry
		info.RefreshExpiry = s.tokens.refreshExpiry
		info.HasRefreshToken = s.tokens.refresh != ""
		info.Claims = s.tokens.claims
	}
	return info
}

// Claims returns the decoded claims of the current access token.
func (s *Session) Claims(ctx context.Context) (*Claims, error) {
	raw, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	return ParseClaims(raw)
}

// canAuthenticate reports whether Token has any chance of succeeding.
func (s *Session) canAuthenticate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens != nil || s.creds.CanLogin() || s.creds.CanRefresh()
}

// RefreshToken returns the current refresh token so it can be persisted.
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.refresh
}

// Login performs a password grant with creds. Concurrent logins with the
// same credentials share one flight. A Login that joins a refresh, or a
// login for other credentials, waits for it and then runs its own grant.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	if !creds.CanLogin() {
		return &AuthError{Kind: ErrLoginFailure, Description: "username, password, client id and client secret are required"}
	}

	s.mu.Lock()
	s.creds = creds
	s.lastLogin = Credentials{}
	s.mu.Unlock()

	for {
		var ran atomic.Bool
		_, err := s.do(ctx, func(fctx context.Context, gen uint64) (string, error) {
			ran.Store(true)
			return s.login(fctx, gen)
		})
		if ctx.Err() != nil || ran.Load() || s.loggedInWith(creds) {
			return err
		}
	}
}

// loggedInWith reports whether a password grant with creds started since
// Login reset lastLogin.
func (s *Session) loggedInWith(creds Credentials) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.lastLogin
	last.RefreshToken, creds.RefreshToken = "", ""
	return last == creds
}

// Token returns a bearer token valid for at least the clock skew margin,
// refreshing or logging in when needed.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.tokens.accessValid(s.now(), s.skew) {
		tok := s.tokens.access
		s.mu.Unlock()
		return tok, nil
	}
	s.mu.Unlock()

	return s.do(ctx, func(fctx context.Context, gen uint64) (string, error) {
		return s.ensure(fctx, gen, "")
	})
}

// Invalidate reports that stale was rejected by the server. Only the first
// caller holding stale triggers a refresh; the rest receive its result.
func (s *Session) Invalidate(ctx context.Context, stale string) (string, error) {
	return s.do(ctx, func(fctx context.Context, gen uint64) (string, error) {
		return s.ensure(fctx, gen, stale)
	})
}

// Refresh forces a refresh grant. On failure the session is cleared and an
// error matching ErrRefreshFailure is returned.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.do(ctx, func(fctx context.Context, gen uint64) (string, error) {
		return s.refresh(fctx, gen)
	})
	return err
}

// Logout revokes the refresh token on the auth server if possible and always
// clears local state. A login or refresh still in flight cannot repopulate
// the session afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	var refresh string
	if s.tokens != nil {
		refresh = s.tokens.refresh
	}
	s.tokens = nil
	s.state = StateUnauthenticated
	s.generation++
	s.creds.RefreshToken = ""
	clientID, clientSecret := s.creds.ClientID, s.creds.ClientSecret
	s.mu.Unlock()

	s.flight.Forget(flightKey)
	s.persist("")

	if refresh == "" {
		return nil
	}

	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {refresh},
	}

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(lctx, http.MethodPost, s.logoutURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Server side logout failed, local session cleared")
		return nil
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn().Int("status", resp.StatusCode).Msg("Server side logout rejected, local session cleared")
	}
	return nil
}

// do runs fn as the single flight. fn gets a context detached from the
// caller, so cancelling one waiter abandons only that wait.
func (s *Session) do(ctx context.Context, fn func(context.Context, uint64) (string, error)) (string, error) {
	return s.doKey(ctx, flightKey, fn)
}

func (s *Session) doKey(ctx context.Context, key string, fn func(context.Context, uint64) (string, error)) (string, error) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	ch := s.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		fctx = context.WithValue(fctx, oauth2.HTTPClient, s.httpClient)
		return fn(fctx, gen)
	})

	select {
	case <-ctx.Done():
		return "", &TransportError{Method: http.MethodPost, URL: s.oauth.Endpoint.TokenURL, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// ensure is the body of Token and Invalidate. When stale is set and still
// current, the access token is treated as expired regardless of its expiry.
func (s *Session) ensure(ctx context.Context, gen uint64, stale string) (string, error) {
	s.mu.Lock()
	tokens, creds := s.tokens, s.creds
	now := s.now()
	forced := stale != "" && tokens != nil && tokens.access == stale
	s.mu.Unlock()

	if !forced && tokens.accessValid(now, s.skew) {
		return tokens.access, nil
	}

	if tokens.refreshValid(now) {
		tok, err := s.refresh(ctx, gen)
		if err == nil {
			return tok, nil
		}
		if !creds.CanLogin() || errors.Is(err, ErrAuthenticationRequired) {
			return "", err
		}
		s.logger.Warn().Err(err).Msg("Token refresh failed, falling back to login")
	}

	if creds.CanLogin() {
		return s.login(ctx, gen)
	}

	return "", &AuthError{Kind: ErrAuthenticationRequired, Description: "no valid session and no credentials to log in with"}
}

func (s *Session) login(ctx context.Context, gen uint64) (string, error) {
	s.mu.Lock()
	creds := s.creds
	cfg := s.config()
	s.lastLogin = creds
	if s.generation == gen {
		s.state = StateAuthenticating
	}
	s.mu.Unlock()

	s.logger.Debug().Str("username", creds.Username).Msg("Requesting token with password grant")

	tok, err := cfg.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		s.fail(gen)
		return "", grantError(ErrLoginFailure, err)
	}
	return s.store(gen, tok, ErrLoginFailure)
}

func (s *Session) refresh(ctx context.Context, gen uint64) (string, error) {
	s.mu.Lock()
	var rt string
	if s.tokens != nil {
		rt = s.tokens.refresh
	}
	if rt == "" {
		rt = s.creds.RefreshToken
	}
	if rt != "" && s.generation == gen {
		s.state = StateRefreshing
	}
	cfg := s.config()
	s.mu.Unlock()

	if rt == "" {
		return "", &AuthError{Kind: ErrAuthenticationRequired, Description: "no refresh token available"}
	}

	s.logger.Debug().Msg("Refreshing access token")

	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		s.clear(gen)
		return "", grantError(ErrRefreshFailure, err)
	}
	return s.store(gen, tok, ErrRefreshFailure)
}

// store commits a grant result unless Logout ran since the flight started.
func (s *Session) store(gen uint64, tok *oauth2.Token, kind error) (string, error) {
	ts, err := newTokenSet(tok, s.now())
	if err != nil {
		s.fail(gen)
		return "", &AuthError{Kind: kind, Err: err}
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return "", &AuthError{Kind: ErrAuthenticationRequired, Description: "session was logged out"}
	}
	s.tokens = ts
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.logger.Debug().
		Time("access_expiry", ts.accessExpiry).
		Bool("refresh_token", ts.refresh != "").
		Msg("Session authenticated")

	s.persist(ts.refresh)
	return ts.access, nil
}

// config returns the oauth2 configuration for the current client id. The
// caller must hold s.mu.
func (s *Session) config() *oauth2.Config {
	cfg := *s.oauth
	cfg.ClientID = s.creds.ClientID
	cfg.ClientSecret = s.creds.ClientSecret
	return &cfg
}

// fail drops back to unauthenticated without touching stored tokens.
func (s *Session) fail(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.state = StateUnauthenticated
	}
}

// clear drops all token state after a rejected refresh, including the
// persisted copy so the next run does not replay it.
func (s *Session) clear(gen uint64) {
	s.mu.Lock()
	current := s.generation == gen
	if current {
		s.tokens = nil
		s.state = StateUnauthenticated
		s.creds.RefreshToken = ""
	}
	s.mu.Unlock()

	if current {
		s.persist("")
	}
}

func (s *Session) persist(refresh string) {
	if s.tokenStore == nil {
		return
	}
	if err := s.tokenStore.Save(refresh); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist refresh token")
	}
}

// grantError converts an oauth2 failure into an AuthError of the given kind.
func grantError(kind, err error) error {
	authErr := &AuthError{Kind: kind, Err: err}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		authErr.Code = re.ErrorCode
		authErr.Description = re.ErrorDescription
		if re.Response != nil {
			authErr.StatusCode = re.Response.StatusCode
		}
	}
	return authErr
}
