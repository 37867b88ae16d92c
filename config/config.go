package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/s0up4200/dexter/mangadex"
)

// EnvPrefix prefixes every environment override, e.g.
// DEXTER_CREDENTIALS_CLIENT_ID.
const EnvPrefix = "DEXTER"

// Load loads the configuration from file, .env and the environment. Without
// an explicit path a missing config file is not an error, so the CLI works
// anonymously out of the box.
func Load(configPath string) (*Config, error) {
	// A .env file never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("mangadex.dev", EnvPrefix+"_MANGADEX_DEV", mangadex.DevEnvVar); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dexter"))
		}

		v.AddConfigPath("/etc/dexter/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.State.Dir == "" {
		cfg.State.Dir = defaultStateDir()
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key is registered so
// that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// MangaDex defaults
	v.SetDefault("mangadex.dev", false)
	v.SetDefault("mangadex.api_url", "")
	v.SetDefault("mangadex.auth_url", "")
	v.SetDefault("mangadex.user_agent", "")
	v.SetDefault("mangadex.timeout", "30s")
	v.SetDefault("mangadex.clock_skew", mangadex.DefaultClockSkew.String())
	v.SetDefault("mangadex.language", "en")
	v.SetDefault("mangadex.content_ratings", []string{"safe", "suggestive"})

	// Credentials are empty unless configured
	v.SetDefault("credentials.client_id", "")
	v.SetDefault("credentials.client_secret", "")
	v.SetDefault("credentials.username", "")
	v.SetDefault("credentials.password", "")
	v.SetDefault("credentials.refresh_token", "")

	// OAuth defaults
	v.SetDefault("oauth.redirect_url", "http://localhost:8765/auth_code")
	v.SetDefault("oauth.callback_addr", "localhost:8765")

	// Retry defaults
	retry := mangadex.DefaultRetryPolicy()
	v.SetDefault("retry.max_retries", retry.MaxRetries)
	v.SetDefault("retry.initial_backoff", retry.InitialBackoff.String())
	v.SetDefault("retry.max_backoff", retry.MaxBackoff.String())
	v.SetDefault("retry.max_rate_limit_wait", retry.MaxRateLimitWait.String())

	// State defaults
	v.SetDefault("state.dir", "")
	v.SetDefault("state.persist_token", true)

	// Filter defaults
	v.SetDefault("filter.default_expression", "")

	// Upload defaults
	v.SetDefault("upload.language", "en")
	v.SetDefault("upload.groups", []string{})
	v.SetDefault("upload.pattern", "*.{png,jpg,jpeg,gif}")
	v.SetDefault("upload.max_image_size", "20MB")
	v.SetDefault("upload.max_session_size", "200MB")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	c := cfg.Credentials
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return fmt.Errorf("credentials.client_id and credentials.client_secret must be set together")
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("credentials.username and credentials.password must be set together")
	}
	if (c.Username != "" || c.RefreshToken != "") && c.ClientID == "" {
		return fmt.Errorf("credentials.client_id is required to log in")
	}

	if cfg.MangaDex.Timeout <= 0 {
		return fmt.Errorf("mangadex.timeout must be positive")
	}
	if cfg.MangaDex.Language == "" {
		return fmt.Errorf("mangadex.language is required")
	}

	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative")
	}
	if cfg.Retry.InitialBackoff < 0 || cfg.Retry.MaxBackoff < 0 || cfg.Retry.MaxRateLimitWait < 0 {
		return fmt.Errorf("retry durations cannot be negative")
	}

	for name, preset := range cfg.Filter.Presets {
		if strings.TrimSpace(preset.Expression) == "" {
			return fmt.Errorf("filter preset %q has no expression", name)
		}
	}

	if cfg.Upload.MaxImageSize == 0 || cfg.Upload.MaxSessionSize < cfg.Upload.MaxImageSize {
		return fmt.Errorf("upload.max_session_size must be at least upload.max_image_size")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

func defaultStateDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".dexter")
	}
	return ".dexter"
}

// TokenPath is where the refresh token is kept.
func (c *Config) TokenPath() string {
	return filepath.Join(c.State.Dir, "token.json")
}

// TagsPath is where the tag table is cached.
func (c *Config) TagsPath() string {
	return filepath.Join(c.State.Dir, "tags.json")
}

// ReportReasonsPath is where the report reason table is cached.
func (c *Config) ReportReasonsPath() string {
	return filepath.Join(c.State.Dir, "report_reasons.json")
}

// ClientCredentials converts the configured credentials.
func (c *Config) ClientCredentials() mangadex.Credentials {
	return mangadex.Credentials{
		ClientID:     c.Credentials.ClientID,
		ClientSecret: c.Credentials.ClientSecret,
		Username:     c.Credentials.Username,
		Password:     c.Credentials.Password,
		RefreshToken: c.Credentials.RefreshToken,
	}
}

// RetryPolicy converts the retry settings.
func (c *Config) RetryPolicy() mangadex.RetryPolicy {
	return mangadex.RetryPolicy{
		MaxRetries:       c.Retry.MaxRetries,
		InitialBackoff:   c.Retry.InitialBackoff,
		MaxBackoff:       c.Retry.MaxBackoff,
		MaxRateLimitWait: c.Retry.MaxRateLimitWait,
	}
}
