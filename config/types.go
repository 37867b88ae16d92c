package config

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// Config represents the complete configuration structure
type Config struct {
	MangaDex    MangaDexConfig    `mapstructure:"mangadex"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	OAuth       OAuthConfig       `mapstructure:"oauth"`
	Retry       RetryConfig       `mapstructure:"retry"`
	State       StateConfig       `mapstructure:"state"`
	Filter      FilterConfig      `mapstructure:"filter"`
	Upload      UploadConfig      `mapstructure:"upload"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// MangaDexConfig holds API connection details
type MangaDexConfig struct {
	Dev       bool          `mapstructure:"dev"`
	APIURL    string        `mapstructure:"api_url"`
	AuthURL   string        `mapstructure:"auth_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	ClockSkew time.Duration `mapstructure:"clock_skew"`
	// Language is used to pick titles and tag names for display
	Language       string   `mapstructure:"language"`
	ContentRatings []string `mapstructure:"content_ratings"`
}

// CredentialsConfig holds the personal API client and account details
type CredentialsConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// OAuthConfig contains settings for the authorization code flow
type OAuthConfig struct {
	RedirectURL  string `mapstructure:"redirect_url"`
	CallbackAddr string `mapstructure:"callback_addr"`
}

// RetryConfig controls retries of unavailable and rate limited requests
type RetryConfig struct {
	MaxRetries       int           `mapstructure:"max_retries"`
	InitialBackoff   time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	MaxRateLimitWait time.Duration `mapstructure:"max_rate_limit_wait"`
}

// StateConfig locates files dexter writes between runs
type StateConfig struct {
	Dir string `mapstructure:"dir"`
	// PersistToken keeps the refresh token in Dir so later runs skip the
	// password login
	PersistToken bool `mapstructure:"persist_token"`
}

// FilterConfig contains filter definitions
type FilterConfig struct {
	DefaultExpression string                  `mapstructure:"default_expression"`
	Presets           map[string]PresetConfig `mapstructure:"presets"`
}

// PresetConfig is a named filter expression
type PresetConfig struct {
	Description string `mapstructure:"description"`
	Expression  string `mapstructure:"expression"`
}

// UploadConfig contains chapter upload defaults and limits
type UploadConfig struct {
	Language       string            `mapstructure:"language"`
	Groups         []string          `mapstructure:"groups"`
	Pattern        string            `mapstructure:"pattern"`
	MaxImageSize   datasize.ByteSize `mapstructure:"max_image_size"`
	MaxSessionSize datasize.ByteSize `mapstructure:"max_session_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
