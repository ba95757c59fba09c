package propagate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/message"

	"github.com/tonimelisma/episodesync/internal/episode"
)

// Kind names a flag-change job kind.
type Kind string

// KindSeasonWatched changes the watch flag of a whole season.
const KindSeasonWatched Kind = "season_watched"

// Policy is the set of decisions that distinguish one job kind from another.
// The orchestrator in Job is the same for every kind.
type Policy struct {
	Kind Kind

	Criteria func(target episode.Flag, now time.Time) episode.Criteria

	ResolvePointer func(
		ctx context.Context, q PointerQuerier, scope episode.SeasonScope, target episode.Flag, now time.Time,
	) (episode.Pointer, error)

	MarkTime func(target episode.Flag) bool

	Confirmation func(p *message.Printer, format episode.NumberFormat, target episode.Flag, season int) (string, bool)

	// Tracked reports whether the tracking service hears about target.
	Tracked func(target episode.Flag) bool
}

var policies = map[Kind]Policy{
	KindSeasonWatched: {
		Kind:           KindSeasonWatched,
		Criteria:       BuildCriteria,
		ResolvePointer: ResolveLastWatched,
		MarkTime:       MarkTime,
		Confirmation:   BuildConfirmation,
		Tracked: func(target episode.Flag) bool {
			return !episode.IsSkipped(target)
		},
	},
}

// PolicyFor returns the policy of kind.
func PolicyFor(kind Kind) (Policy, error) {
	p, ok := policies[kind]
	if !ok {
		return Policy{}, fmt.Errorf("propagate: unknown job kind %q", kind)
	}

	return p, nil
}
