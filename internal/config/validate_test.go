package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config with both remotes enabled and every field set.
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Catalog.DBPath = "/data/catalog.db"
	cfg.Tracker.TokenFile = "/data/token.json"
	cfg.Notify.StampFile = "/data/refresh.stamp"
	cfg.Mirror = MirrorConfig{Enabled: true, BaseURL: "https://mirror.example.com", APIKey: "k", Timeout: "30s"}
	cfg.Tracker.Enabled = true
	cfg.Tracker.ClientID = "id"
	cfg.Tracker.ClientSecret = "secret"

	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
	require.NoError(t, ValidateResolved(validConfig()))
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing db path", func(c *Config) { c.Catalog.DBPath = "" }, "catalog.db_path: required"},
		{"mirror without url", func(c *Config) { c.Mirror.BaseURL = "" }, "mirror.base_url: required"},
		{"mirror ftp url", func(c *Config) { c.Mirror.BaseURL = "ftp://x" }, "must be an http or https URL"},
		{"mirror without key", func(c *Config) { c.Mirror.APIKey = "" }, "mirror.api_key"},
		{"mirror bad timeout", func(c *Config) { c.Mirror.Timeout = "later" }, "mirror.timeout: invalid duration"},
		{"tracker timeout too short", func(c *Config) { c.Tracker.Timeout = "10ms" }, "tracker.timeout: must be between"},
		{"tracker timeout too long", func(c *Config) { c.Tracker.Timeout = "1h" }, "tracker.timeout: must be between"},
		{"tracker without client id", func(c *Config) { c.Tracker.ClientID = "" }, "tracker.client_id"},
		{"tracker without secret", func(c *Config) { c.Tracker.ClientSecret = "" }, "tracker.client_secret"},
		{"tracker without token file", func(c *Config) { c.Tracker.TokenFile = "" }, "tracker.token_file"},
		{"bad listen addr", func(c *Config) { c.Notify.ListenAddr = "localhost" }, "notify.listen_addr"},
		{"bad number format", func(c *Config) { c.Display.NumberFormat = "roman" }, "display.number_format"},
		{"bad language", func(c *Config) { c.Display.Language = "not a tag!" }, "display.language"},
		{"bad log level", func(c *Config) { c.Logging.LogLevel = "trace" }, "logging.log_level"},
		{"bad log format", func(c *Config) { c.Logging.LogFormat = "xml" }, "logging.log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_DisabledRemotesSkipChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Mirror = MirrorConfig{Timeout: "30s"}
	cfg.Tracker.Enabled = false
	cfg.Tracker.ClientID = ""
	cfg.Tracker.ClientSecret = ""

	require.NoError(t, Validate(cfg))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.LogLevel = "trace"
	cfg.Logging.LogFormat = "xml"
	cfg.Mirror.APIKey = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.log_level")
	assert.Contains(t, err.Error(), "logging.log_format")
	assert.Contains(t, err.Error(), "mirror.api_key")
}

func TestValidateResolved_RelativePaths(t *testing.T) {
	cfg := validConfig()
	cfg.Tracker.TokenFile = "token.json"
	cfg.Notify.StampFile = ""

	err := ValidateResolved(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracker.token_file: must be absolute")
	assert.NotContains(t, err.Error(), "notify.stamp_file", "empty stamp file disables the stamp")
}
