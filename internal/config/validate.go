package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"time"

	"golang.org/x/text/language"

	"github.com/tonimelisma/episodesync/internal/episode"
)

// Validation range constants.
const (
	minTimeout = 1 * time.Second
	maxTimeout = 10 * time.Minute
)

// Validate checks all configuration values and returns all errors found.
// Every error is collected so users can fix them in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Catalog.DBPath == "" {
		errs = append(errs, errors.New("catalog.db_path: required"))
	}

	errs = append(errs, validateMirror(&cfg.Mirror)...)
	errs = append(errs, validateTracker(&cfg.Tracker)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateDisplay(&cfg.Display)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

// ValidateResolved checks constraints that only hold once environment and
// CLI overrides have been applied and "~/" has been expanded.
func ValidateResolved(cfg *Config) error {
	var errs []error

	paths := []struct {
		key, path string
	}{
		{"catalog.db_path", cfg.Catalog.DBPath},
		{"tracker.token_file", cfg.Tracker.TokenFile},
		{"notify.stamp_file", cfg.Notify.StampFile},
	}

	for _, p := range paths {
		if p.path != "" && !filepath.IsAbs(p.path) {
			errs = append(errs, fmt.Errorf("%s: must be absolute after expansion, got %q", p.key, p.path))
		}
	}

	return errors.Join(errs...)
}

func validateMirror(m *MirrorConfig) []error {
	errs := validateTimeout("mirror.timeout", m.Timeout)

	if !m.Enabled {
		return errs
	}

	errs = append(errs, validateBaseURL("mirror.base_url", m.BaseURL)...)

	if m.APIKey == "" {
		errs = append(errs, errors.New("mirror.api_key: required when the mirror is enabled"))
	}

	return errs
}

func validateTracker(t *TrackerConfig) []error {
	errs := validateTimeout("tracker.timeout", t.Timeout)

	if !t.Enabled {
		return errs
	}

	errs = append(errs, validateBaseURL("tracker.base_url", t.BaseURL)...)

	if t.ClientID == "" {
		errs = append(errs, errors.New("tracker.client_id: required when the tracker is enabled"))
	}

	if t.ClientSecret == "" {
		errs = append(errs, errors.New("tracker.client_secret: required when the tracker is enabled"))
	}

	if t.TokenFile == "" {
		errs = append(errs, errors.New("tracker.token_file: required when the tracker is enabled"))
	}

	return errs
}

func validateNotify(n *NotifyConfig) []error {
	if n.ListenAddr == "" {
		return nil
	}

	if _, _, err := net.SplitHostPort(n.ListenAddr); err != nil {
		return []error{fmt.Errorf("notify.listen_addr: %w", err)}
	}

	return nil
}

func validateDisplay(d *DisplayConfig) []error {
	var errs []error

	if _, err := episode.ParseNumberFormat(d.NumberFormat); err != nil {
		errs = append(errs, fmt.Errorf("display.number_format: must be one of default, english, english-lower; got %q",
			d.NumberFormat))
	}

	if _, err := language.Parse(d.Language); err != nil {
		errs = append(errs, fmt.Errorf("display.language: %w", err))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateTimeout(key, value string) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", key, value, err)}
	}

	if d < minTimeout || d > maxTimeout {
		return []error{fmt.Errorf("%s: must be between %s and %s, got %s", key, minTimeout, maxTimeout, d)}
	}

	return nil
}

func validateBaseURL(key, raw string) []error {
	if raw == "" {
		return []error{fmt.Errorf("%s: required", key)}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", key, err)}
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{fmt.Errorf("%s: must be an http or https URL, got %q", key, raw)}
	}

	return nil
}
