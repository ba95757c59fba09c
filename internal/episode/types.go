package episode

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Stable external identifiers. They come from the show database the catalog
// was populated from and are the same ids the remote services use.
type (
	ShowID    int64
	SeasonID  int64
	EpisodeID int64
)

// ErrInvalidScope is returned by SeasonScope.Validate.
var ErrInvalidScope = errors.New("episode: invalid season scope")

// SeasonScope identifies one season of one show. A job holds its scope for
// its whole lifetime and never mutates it.
type SeasonScope struct {
	ShowID       ShowID
	SeasonID     SeasonID
	SeasonNumber int
}

// Validate checks that the ids are set and the season number is not negative.
// Season 0 is the specials season and is valid.
func (s SeasonScope) Validate() error {
	switch {
	case s.ShowID <= 0:
		return fmt.Errorf("%w: show id %d", ErrInvalidScope, s.ShowID)
	case s.SeasonID <= 0:
		return fmt.Errorf("%w: season id %d", ErrInvalidScope, s.SeasonID)
	case s.SeasonNumber < 0:
		return fmt.Errorf("%w: season number %d", ErrInvalidScope, s.SeasonNumber)
	}

	return nil
}

// Key returns a string identifying the scope, used for per-scope locking.
func (s SeasonScope) Key() string {
	return fmt.Sprintf("%d:%d", s.ShowID, s.SeasonID)
}

// LogValue implements slog.LogValuer.
func (s SeasonScope) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("show_id", int64(s.ShowID)),
		slog.Int64("season_id", int64(s.SeasonID)),
		slog.Int("season", s.SeasonNumber),
	)
}

// Episode is one episode row of the local catalog.
type Episode struct {
	ID           EpisodeID `json:"id"`
	ShowID       ShowID    `json:"show_id"`
	SeasonID     SeasonID  `json:"season_id"`
	SeasonNumber int       `json:"season_number"`
	Number       int       `json:"number"`
	Title        string    `json:"title,omitempty"`
	Released     time.Time `json:"released,omitzero"` // zero: no known release date
	Flag         Flag      `json:"flag"`
}

// HasReleaseDate reports whether the episode has a known air date.
func (e Episode) HasReleaseDate() bool {
	return !e.Released.IsZero()
}

// Change is the new flag of one episode touched by a job.
type Change struct {
	EpisodeID EpisodeID
	Number    int
	Flag      Flag
	Previous  Flag // flag before the job
}

// SeasonPayload describes the episodes of one season changed by a single job
// run. Both remote clients build their wire formats from it.
type SeasonPayload struct {
	ShowID       ShowID
	SeasonID     SeasonID
	SeasonNumber int
	Flag         Flag
	Changes      []Change
}

// NewSeasonPayload builds the payload for the given changes. All changes of
// one job carry the same flag.
func NewSeasonPayload(scope SeasonScope, flag Flag, changes []Change) SeasonPayload {
	return SeasonPayload{
		ShowID:       scope.ShowID,
		SeasonID:     scope.SeasonID,
		SeasonNumber: scope.SeasonNumber,
		Flag:         flag,
		Changes:      changes,
	}
}

// Empty reports whether the payload carries no episodes.
func (p SeasonPayload) Empty() bool {
	return len(p.Changes) == 0
}
