package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "EPISODESYNC_CONFIG"
	EnvDB       = "EPISODESYNC_DB"
	EnvLogLevel = "EPISODESYNC_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // EPISODESYNC_CONFIG: override config file path
	DBPath     string // EPISODESYNC_DB: catalog database path
	LogLevel   string // EPISODESYNC_LOG_LEVEL: log level
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		DBPath:     os.Getenv(EnvDB),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}
