// Package episode defines the watch flag, the season scope, and the episode
// row types shared by the catalog, the propagation job, and the remote
// clients. It has no dependencies on other internal packages.
package episode

import (
	"errors"
	"fmt"
	"strings"
)

// Flag is the three-valued watch state of an episode. The numeric values
// are the ones stored in the catalog and sent to the remote mirror.
type Flag int

const (
	Unwatched Flag = 0
	Watched   Flag = 1
	Skipped   Flag = 2
)

// ErrInvalidFlag is returned when user input does not name a watch flag.
// Programmatic misuse (an out-of-range Flag value) panics instead.
var ErrInvalidFlag = errors.New("episode: invalid watch flag")

// Flags returns every valid flag value.
func Flags() []Flag {
	return []Flag{Unwatched, Watched, Skipped}
}

// Valid reports whether f is one of the three flag variants.
func (f Flag) Valid() bool {
	switch f {
	case Unwatched, Watched, Skipped:
		return true
	default:
		return false
	}
}

// mustBeValid panics on an out-of-range flag. Such a value can only come from
// a programming error, never from the catalog (CHECK constraint) or the CLI
// (ParseFlag).
func mustBeValid(f Flag) {
	if !f.Valid() {
		panic(fmt.Sprintf("episode: invalid watch flag %d", int(f)))
	}
}

// IsUnwatched reports whether f is Unwatched.
func IsUnwatched(f Flag) bool {
	mustBeValid(f)
	return f == Unwatched
}

// IsWatched reports whether f is Watched.
func IsWatched(f Flag) bool {
	mustBeValid(f)
	return f == Watched
}

// IsSkipped reports whether f is Skipped.
func IsSkipped(f Flag) bool {
	mustBeValid(f)
	return f == Skipped
}

func (f Flag) String() string {
	switch f {
	case Unwatched:
		return "unwatched"
	case Watched:
		return "watched"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Flag(%d)", int(f))
	}
}

// ParseFlag parses a flag name as accepted on the command line and in
// import files. Matching is case-insensitive.
func ParseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unwatched":
		return Unwatched, nil
	case "watched":
		return Watched, nil
	case "skipped":
		return Skipped, nil
	default:
		return 0, fmt.Errorf("%w: %q (want watched, skipped or unwatched)", ErrInvalidFlag, s)
	}
}

// MarshalText encodes the flag by name.
func (f Flag) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFlag, int(f))
	}

	return []byte(f.String()), nil
}

// UnmarshalText decodes a flag name.
func (f *Flag) UnmarshalText(text []byte) error {
	parsed, err := ParseFlag(string(text))
	if err != nil {
		return err
	}

	*f = parsed

	return nil
}
