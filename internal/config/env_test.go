package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides_AllSet(t *testing.T) {
	t.Setenv("EPISODESYNC_CONFIG", "/custom/config.toml")
	t.Setenv("EPISODESYNC_DB", "/custom/catalog.db")
	t.Setenv("EPISODESYNC_LOG_LEVEL", "debug")

	overrides := ReadEnvOverrides()
	assert.Equal(t, "/custom/config.toml", overrides.ConfigPath)
	assert.Equal(t, "/custom/catalog.db", overrides.DBPath)
	assert.Equal(t, "debug", overrides.LogLevel)
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	t.Setenv("EPISODESYNC_CONFIG", "")
	t.Setenv("EPISODESYNC_DB", "")
	t.Setenv("EPISODESYNC_LOG_LEVEL", "")

	assert.Equal(t, EnvOverrides{}, ReadEnvOverrides())
}
