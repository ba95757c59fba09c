package config

import (
	"path/filepath"

	"github.com/tonimelisma/episodesync/internal/trakt"
)

// Default values for configuration options.
const (
	defaultDBFile       = "catalog.db"
	defaultTokenFile    = "trakt-token.json"
	defaultStampFile    = "refresh.stamp"
	defaultTimeout      = "30s"
	defaultListenAddr   = "127.0.0.1:8765"
	defaultNumberFormat = "default"
	defaultLanguage     = "en"
	defaultLogLevel     = "info"
	defaultLogFormat    = "auto"
)

// DefaultConfig returns a Config populated with all default values. Data
// files live under DefaultDataDir; when no home directory can be found the
// paths stay empty and Validate reports them.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{DBPath: dataPath(defaultDBFile)},
		Mirror:  MirrorConfig{Timeout: defaultTimeout},
		Tracker: TrackerConfig{
			BaseURL:   trakt.DefaultBaseURL,
			TokenFile: dataPath(defaultTokenFile),
			Timeout:   defaultTimeout,
		},
		Notify: NotifyConfig{
			StampFile:  dataPath(defaultStampFile),
			ListenAddr: defaultListenAddr,
		},
		Display: DisplayConfig{
			NumberFormat: defaultNumberFormat,
			Language:     defaultLanguage,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}

func dataPath(name string) string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, name)
}
