package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		MangaDex: MangaDexConfig{
			Timeout:  30 * time.Second,
			Language: "en",
		},
		Upload: UploadConfig{
			MaxImageSize:   20 * datasize.MB,
			MaxSessionSize: 200 * datasize.MB,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "anonymous",
			modify: func(*Config) {},
		},
		{
			name: "password login",
			modify: func(c *Config) {
				c.Credentials = CredentialsConfig{ClientID: "id", ClientSecret: "secret", Username: "u", Password: "p"}
			},
		},
		{
			name:    "secret without id",
			modify:  func(c *Config) { c.Credentials.ClientSecret = "secret" },
			wantErr: "must be set together",
		},
		{
			name: "password without username",
			modify: func(c *Config) {
				c.Credentials = CredentialsConfig{ClientID: "id", ClientSecret: "secret", Password: "p"}
			},
			wantErr: "credentials.username and credentials.password",
		},
		{
			name:    "refresh token without client",
			modify:  func(c *Config) { c.Credentials.RefreshToken = "r" },
			wantErr: "client_id is required",
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.MangaDex.Timeout = 0 },
			wantErr: "mangadex.timeout",
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Retry.MaxRetries = -1 },
			wantErr: "retry.max_retries",
		},
		{
			name: "empty preset",
			modify: func(c *Config) {
				c.Filter.Presets = map[string]PresetConfig{"x": {Description: "nothing"}}
			},
			wantErr: `filter preset "x"`,
		},
		{
			name:    "session smaller than image",
			modify:  func(c *Config) { c.Upload.MaxSessionSize = datasize.MB },
			wantErr: "upload.max_session_size",
		},
		{
			name:    "invalid level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level: verbose",
		},
		{
			name:    "invalid format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid logging format: xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mangadex:
  language: ja
  timeout: 10s
credentials:
  client_id: personal-client-x
  client_secret: shh
filter:
  presets:
    popular:
      description: Well followed titles
      expression: Follows > 10000
upload:
  max_image_size: 5MB
logging:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ja", cfg.MangaDex.Language)
	assert.Equal(t, 10*time.Second, cfg.MangaDex.Timeout)
	assert.Equal(t, []string{"safe", "suggestive"}, cfg.MangaDex.ContentRatings)
	assert.Equal(t, "personal-client-x", cfg.Credentials.ClientID)
	assert.Equal(t, "Follows > 10000", cfg.Filter.Presets["popular"].Expression)
	assert.Equal(t, 5*datasize.MB, cfg.Upload.MaxImageSize)
	assert.Equal(t, 200*datasize.MB, cfg.Upload.MaxSessionSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.NotEmpty(t, cfg.State.Dir)

	creds := cfg.ClientCredentials()
	assert.Equal(t, "shh", creds.ClientSecret)
	assert.Equal(t, filepath.Join(cfg.State.Dir, "token.json"), cfg.TokenPath())
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.MangaDex.Language)
	assert.Empty(t, cfg.Credentials.ClientID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoadEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"DEXTER_CREDENTIALS_CLIENT_ID=from-dotenv\nDEXTER_CREDENTIALS_CLIENT_SECRET=dotenv-secret\nDEXTER_LOGGING_LEVEL=warn\n",
	), 0o600))
	t.Setenv("DEXTER_LOGGING_LEVEL", "error")
	t.Setenv("DEXTER_STATE_DIR", filepath.Join(dir, "state"))
	t.Setenv("DEXTER_API_DEV", "true")

	// godotenv sets variables for the process, so clean up after it
	t.Cleanup(func() {
		os.Unsetenv("DEXTER_CREDENTIALS_CLIENT_ID")
		os.Unsetenv("DEXTER_CREDENTIALS_CLIENT_SECRET")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Credentials.ClientID)
	assert.Equal(t, "error", cfg.Logging.Level, "the environment wins over .env")
	assert.Equal(t, filepath.Join(dir, "state"), cfg.State.Dir)
	assert.True(t, cfg.MangaDex.Dev)
}
