package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys lists the valid keys of every section. The slices are sorted so
// ties in edit distance resolve deterministically.
var knownKeys = map[string][]string{
	"catalog": {"db_path"},
	"display": {"language", "number_format"},
	"logging": {"log_format", "log_level"},
	"mirror":  {"api_key", "base_url", "enabled", "timeout"},
	"notify":  {"listen_addr", "stamp_file"},
	"tracker": {"base_url", "client_id", "client_secret", "enabled", "timeout", "token_file"},
}

var knownSections = func() []string {
	sections := make([]string, 0, len(knownKeys))
	for s := range knownKeys {
		sections = append(sections, s)
	}

	slices.Sort(sections)

	return sections
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		// An unknown table also reports each of its keys; name it once.
		if len(key) > 0 {
			if _, known := knownKeys[key[0]]; !known {
				if seen[key[0]] {
					continue
				}

				seen[key[0]] = true
			}
		}

		if err := unknownKeyError(key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// unknownKeyError describes one undecoded key. A key inside a known section
// gets a suggestion from that section's keys; anything else is matched
// against the section names.
func unknownKeyError(key toml.Key) error {
	if len(key) == 0 {
		return nil
	}

	section := key[0]

	keys, ok := knownKeys[section]
	if !ok {
		if len(key) == 1 {
			for _, s := range knownSections {
				if slices.Contains(knownKeys[s], section) {
					return fmt.Errorf("config key %q belongs in [%s]", section, s)
				}
			}
		}

		if s := closestMatch(section, knownSections); s != "" {
			return fmt.Errorf("unknown config section %q, did you mean %q?", section, s)
		}

		return fmt.Errorf("unknown config section %q", section)
	}

	if len(key) == 1 {
		return nil
	}

	field := key[1]
	if s := closestMatch(field, keys); s != "" {
		return fmt.Errorf("unknown config key %q in [%s], did you mean %q?", field, section, s)
	}

	return fmt.Errorf("unknown config key %q in [%s]", field, section)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		if d := levenshtein(strings.ToLower(unknown), k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	return best
}

// levenshtein computes the edit distance between two strings with a
// two-row table.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
