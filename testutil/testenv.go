// Package testutil provides shared helpers for end-to-end tests. It depends
// only on the standard library so that tests outside internal/ can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// A missing file is not an error (CI sets env vars directly). Existing env
// vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// LiveTrakt holds the credentials of a trakt.tv test account.
type LiveTrakt struct {
	ClientID     string
	ClientSecret string
	TokenFile    string // token saved by `episodesync trakt login`
	ShowTVDB     string // tvdb id of a show the account may mark freely
}

// LiveTraktFromEnv returns the test account configured through
// EPISODESYNC_E2E_TRAKT_* variables. ok is false unless every variable is set.
func LiveTraktFromEnv() (lt LiveTrakt, ok bool) {
	lt = LiveTrakt{
		ClientID:     os.Getenv("EPISODESYNC_E2E_TRAKT_CLIENT_ID"),
		ClientSecret: os.Getenv("EPISODESYNC_E2E_TRAKT_CLIENT_SECRET"),
		TokenFile:    os.Getenv("EPISODESYNC_E2E_TRAKT_TOKEN_FILE"),
		ShowTVDB:     os.Getenv("EPISODESYNC_E2E_TRAKT_SHOW_TVDB"),
	}

	return lt, lt.ClientID != "" && lt.ClientSecret != "" && lt.TokenFile != "" && lt.ShowTVDB != ""
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// CopyFile copies a file from src to dst with the given permissions,
// creating dst's directory. Crashes on failure because tests cannot proceed
// without the file.
func CopyFile(src, dst string, perm os.FileMode) {
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read %s: %v\n", src, err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: creating %s: %v\n", filepath.Dir(dst), err)
		os.Exit(1)
	}

	if err := os.WriteFile(dst, data, perm); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: writing %s: %v\n", dst, err)
		os.Exit(1)
	}
}
