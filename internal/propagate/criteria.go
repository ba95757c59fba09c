package propagate

import (
	"context"
	"fmt"
	"time"

	"github.com/tonimelisma/episodesync/internal/episode"
)

// ReleaseWindow is how far in the future an episode may air and still be
// flagged by a bulk season action.
const ReleaseWindow = time.Hour

// ReleaseCutoff returns the latest air time a bulk watched/skipped action
// accepts.
func ReleaseCutoff(now time.Time) time.Time {
	return now.Add(ReleaseWindow)
}

// BuildCriteria returns the rows a season action to target may touch.
//
// Resetting to unwatched selects every watched or skipped row regardless of
// air date. Watching or skipping selects released unwatched or skipped rows
// only; already watched rows are left out so the tracking service is never
// asked to record a second watch.
func BuildCriteria(target episode.Flag, now time.Time) episode.Criteria {
	if episode.IsUnwatched(target) {
		return episode.Criteria{
			CurrentFlags: []episode.Flag{episode.Watched, episode.Skipped},
		}
	}

	return episode.Criteria{
		CurrentFlags:       []episode.Flag{episode.Unwatched, episode.Skipped},
		RequireReleaseDate: true,
		ReleasedBefore:     ReleaseCutoff(now),
	}
}

// MarkTime reports whether a season action to target sets the season's
// last-watched time.
func MarkTime(target episode.Flag) bool {
	return !episode.IsUnwatched(target)
}

// ResolveLastWatched derives the season's last-watched pointer after a
// season action to target. A reset returns the none sentinel without
// touching q; otherwise the highest-numbered released episode is the
// pointer, or the not-found sentinel if there is none.
func ResolveLastWatched(
	ctx context.Context, q PointerQuerier, scope episode.SeasonScope, target episode.Flag, now time.Time,
) (episode.Pointer, error) {
	if episode.IsUnwatched(target) {
		return episode.NoPointer(), nil
	}

	id, ok, err := q.TopReleased(ctx, scope, ReleaseCutoff(now))
	if err != nil {
		return episode.Pointer{}, fmt.Errorf("propagate: resolving last watched episode: %w", err)
	}

	if !ok {
		return episode.NotFoundPointer(), nil
	}

	return episode.PointTo(id), nil
}
