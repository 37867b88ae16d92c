package mangadex

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// NewState returns a random value for the OAuth2 state parameter.
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthCodeURL returns the URL a user opens in a browser to grant access with
// the authorization code flow. The redirect URL must be configured with
// WithRedirectURL.
func (s *Session) AuthCodeURL(state string) (string, error) {
	s.mu.Lock()
	cfg := s.config()
	s.mu.Unlock()

	if cfg.RedirectURL == "" {
		return "", fmt.Errorf("%w: redirect URL is required for the authorization code flow", ErrInvalidConfig)
	}
	if cfg.ClientID == "" {
		return "", fmt.Errorf("%w: client id is required for the authorization code flow", ErrInvalidConfig)
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// ExchangeCode trades an authorization code for a token pair. Codes are single
// use, so the exchange runs in its own slot instead of joining a refresh.
func (s *Session) ExchangeCode(ctx context.Context, code string) error {
	if code == "" {
		return &AuthError{Kind: ErrLoginFailure, Description: "authorization code is empty"}
	}

	_, err := s.doKey(ctx, "code:"+code, func(fctx context.Context, gen uint64) (string, error) {
		s.mu.Lock()
		cfg := s.config()
		if s.generation == gen {
			s.state = StateAuthenticating
		}
		s.mu.Unlock()

		s.logger.Debug().Msg("Exchanging authorization code")

		tok, err := cfg.Exchange(fctx, code)
		if err != nil {
			s.fail(gen)
			return "", grantError(ErrLoginFailure, err)
		}
		return s.store(gen, tok, ErrLoginFailure)
	})
	return err
}
