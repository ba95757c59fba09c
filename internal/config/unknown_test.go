package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_InSection(t *testing.T) {
	path := writeTestConfig(t, "[mirror]\napi_kye = \"x\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "api_kye" in [mirror]`)
	assert.Contains(t, err.Error(), `did you mean "api_key"`)
}

func TestLoad_UnknownKey_NoSuggestion(t *testing.T) {
	path := writeTestConfig(t, "[tracker]\nfavourite_colour = \"blue\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "favourite_colour" in [tracker]`)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLoad_UnknownSection(t *testing.T) {
	path := writeTestConfig(t, "[trackr]\nenabled = true\nclient_id = \"x\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config section "trackr", did you mean "tracker"?`)
	assert.Equal(t, 1, strings.Count(err.Error(), "trackr"), "reported once")
}

func TestLoad_TopLevelKeyOutsideSection(t *testing.T) {
	path := writeTestConfig(t, "log_level = \"debug\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `config key "log_level" belongs in [logging]`)
}

func TestLoad_MultipleUnknownKeys(t *testing.T) {
	path := writeTestConfig(t, "[catalog]\ndb_pth = \"/x\"\n\n[notify]\nstampfile = \"/y\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db_path")
	assert.Contains(t, err.Error(), "stamp_file")
}

func TestClosestMatch(t *testing.T) {
	keys := knownKeys["tracker"]

	assert.Equal(t, "client_id", closestMatch("clientid", keys))
	assert.Equal(t, "token_file", closestMatch("TOKEN_FILE", keys))
	assert.Empty(t, closestMatch("something_else", keys))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"db_path", "db_path", 0},
		{"db_pth", "db_path", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}
