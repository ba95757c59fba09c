// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for episodesync. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Mirror  MirrorConfig  `toml:"mirror"`
	Tracker TrackerConfig `toml:"tracker"`
	Notify  NotifyConfig  `toml:"notify"`
	Display DisplayConfig `toml:"display"`
	Logging LoggingConfig `toml:"logging"`
}

// CatalogConfig locates the local SQLite catalog.
type CatalogConfig struct {
	DBPath string `toml:"db_path"`
}

// MirrorConfig controls the remote mirror of the user's episode flags.
type MirrorConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Timeout string `toml:"timeout"`
}

// TrackerConfig controls the trakt.tv tracking service.
type TrackerConfig struct {
	Enabled      bool   `toml:"enabled"`
	BaseURL      string `toml:"base_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenFile    string `toml:"token_file"`
	Timeout      string `toml:"timeout"`
}

// NotifyConfig controls how open views learn that data changed.
type NotifyConfig struct {
	StampFile  string `toml:"stamp_file"`
	ListenAddr string `toml:"listen_addr"`
}

// DisplayConfig controls user-facing text.
type DisplayConfig struct {
	NumberFormat string `toml:"number_format"`
	Language     string `toml:"language"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// TimeoutDuration returns the parsed mirror timeout. Validate has already
// rejected unparseable values, so a failure here falls back to the default.
func (m MirrorConfig) TimeoutDuration() time.Duration {
	return parseTimeout(m.Timeout)
}

// TimeoutDuration returns the parsed tracker timeout.
func (t TrackerConfig) TimeoutDuration() time.Duration {
	return parseTimeout(t.Timeout)
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(defaultTimeout)
	}

	return d
}
