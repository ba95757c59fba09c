package episode

import (
	"slices"
	"time"
)

// Criteria selects the episode rows of a season a bulk flag change may
// touch. The catalog renders it as SQL; Matches evaluates it in memory.
type Criteria struct {
	// CurrentFlags lists the flags a row must currently have. Empty matches
	// nothing.
	CurrentFlags []Flag

	// RequireReleaseDate excludes rows without a known air date.
	RequireReleaseDate bool

	// ReleasedBefore, when non-zero, excludes rows airing after it
	// (inclusive bound, millisecond precision).
	ReleasedBefore time.Time
}

// Matches reports whether e satisfies the criteria.
func (c Criteria) Matches(e Episode) bool {
	if !slices.Contains(c.CurrentFlags, e.Flag) {
		return false
	}

	if c.RequireReleaseDate && !e.HasReleaseDate() {
		return false
	}

	if !c.ReleasedBefore.IsZero() {
		if !e.HasReleaseDate() || e.Released.UnixMilli() > c.ReleasedBefore.UnixMilli() {
			return false
		}
	}

	return true
}

// Equal reports whether two criteria select the same rows.
func (c Criteria) Equal(o Criteria) bool {
	if c.RequireReleaseDate != o.RequireReleaseDate {
		return false
	}

	if !c.ReleasedBefore.Equal(o.ReleasedBefore) {
		return false
	}

	a := slices.Clone(c.CurrentFlags)
	b := slices.Clone(o.CurrentFlags)
	slices.Sort(a)
	slices.Sort(b)

	return slices.Equal(slices.Compact(a), slices.Compact(b))
}
