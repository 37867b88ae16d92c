package mangadex

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Credentials are the inputs to the session. Either the password grant fields
// (Username, Password) or RefreshToken must be set, along with the personal
// API client id and secret.
type Credentials struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// CanLogin reports whether a password grant can be attempted.
func (c Credentials) CanLogin() bool {
	return c.Username != "" && c.Password != "" && c.hasClient()
}

// CanRefresh reports whether a caller supplied refresh token is present.
func (c Credentials) CanRefresh() bool {
	return c.RefreshToken != "" && c.hasClient()
}

func (c Credentials) hasClient() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// String never includes secrets.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, ClientID: %q, Password: %s, ClientSecret: %s, RefreshToken: %s}",
		c.Username, c.ClientID, mask(c.Password), mask(c.ClientSecret), mask(c.RefreshToken))
}

func mask(s string) string {
	if s == "" {
		return `""`
	}
	return redacted
}

// Claims are the fields MangaDex puts in its access tokens.
type Claims struct {
	Type        string      `json:"typ"`
	UserID      string      `json:"uid"`
	Roles       []string    `json:"rol"`
	Permissions []string    `json:"prm"`
	SessionID   string      `json:"sid"`
	RealmAccess realmAccess `json:"realm_access"`
	jwt.RegisteredClaims
}

type realmAccess struct {
	Roles []string `json:"roles"`
}

// User returns the user id, falling back to the subject claim.
func (c *Claims) User() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// AllRoles merges the MangaDex roles with the Keycloak realm roles.
func (c *Claims) AllRoles() []string {
	seen := make(map[string]bool, len(c.Roles)+len(c.RealmAccess.Roles))
	var out []string
	for _, r := range append(append([]string{}, c.Roles...), c.RealmAccess.Roles...) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// HasPermission reports whether the token grants perm.
func (c *Claims) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// ParseClaims decodes an access token without verifying its signature. The
// token came straight from the issuer over TLS, so only the payload matters.
func ParseClaims(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	return claims, nil
}

// tokenSet is the stored result of a login or refresh.
type tokenSet struct {
	access        string
	refresh       string
	accessExpiry  time.Time
	refreshExpiry time.Time
	claims        *Claims
}

// newTokenSet converts an oauth2 token response. The access expiry comes from
// the JWT exp claim when present, otherwise from expires_in.
func newTokenSet(tok *oauth2.Token, now time.Time) (*tokenSet, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("token response carried no access token")
	}

	ts := &tokenSet{
		access:       tok.AccessToken,
		refresh:      tok.RefreshToken,
		accessExpiry: tok.Expiry,
	}

	if claims, err := ParseClaims(tok.AccessToken); err == nil {
		ts.claims = claims
		if claims.ExpiresAt != nil {
			ts.accessExpiry = claims.ExpiresAt.Time
		}
	}

	if ts.accessExpiry.IsZero() {
		return nil, fmt.Errorf("token response carried no expiry")
	}
	if !ts.accessExpiry.After(now) {
		return nil, fmt.Errorf("token response is already expired (expiry %s)", ts.accessExpiry.Format(time.RFC3339))
	}

	if ts.refresh != "" {
		ts.refreshExpiry = refreshExpiry(tok, now)
	}
	return ts, nil
}

// refreshExpiry reads refresh_expires_in from the Keycloak response. A zero
// time means the expiry is unknown and the token is assumed usable.
func refreshExpiry(tok *oauth2.Token, now time.Time) time.Time {
	if claims, err := ParseClaims(tok.RefreshToken); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	switch v := tok.Extra("refresh_expires_in").(type) {
	case float64:
		if v > 0 {
			return now.Add(time.Duration(v) * time.Second)
		}
	case int64:
		if v > 0 {
			return now.Add(time.Duration(v) * time.Second)
		}
	}
	return time.Time{}
}

func (t *tokenSet) accessValid(now time.Time, skew time.Duration) bool {
	return t != nil && t.access != "" && t.accessExpiry.After(now.Add(skew))
}

func (t *tokenSet) refreshValid(now time.Time) bool {
	if t == nil || t.refresh == "" {
		return false
	}
	return t.refreshExpiry.IsZero() || t.refreshExpiry.After(now)
}
