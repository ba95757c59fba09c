package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tonimelisma/episodesync/internal/episode"
)

const (
	sqlEpisodeColumns = `id, show_id, season_id, season_number, number, title, first_aired_ms, watched`

	sqlSelectScopedEpisodes = `SELECT ` + sqlEpisodeColumns + `
		FROM episodes WHERE show_id = ? AND season_id = ?`

	sqlUpdateScopedFlags = `UPDATE episodes SET watched = ?
		WHERE show_id = ? AND season_id = ?`

	sqlTopReleased = `SELECT id FROM episodes
		WHERE show_id = ? AND season_id = ?
		 AND first_aired_ms IS NOT NULL AND first_aired_ms <= ?
		ORDER BY number DESC LIMIT 1`
)

// Tx is a catalog transaction scoped by Store.InTx. Its methods are the
// operations a propagation job performs against one season.
type Tx struct {
	tx     *sql.Tx
	logger *slog.Logger
}

// EligibleEpisodes returns the episodes of scope matching c, ordered by
// episode number.
func (t *Tx) EligibleEpisodes(ctx context.Context, scope episode.SeasonScope, c episode.Criteria) ([]episode.Episode, error) {
	where, args := criteriaSQL(c)
	query := sqlSelectScopedEpisodes + where + ` ORDER BY number ASC`

	rows, err := t.tx.QueryContext(ctx, query, scopeArgs(scope, args...)...)
	if err != nil {
		return nil, fmt.Errorf("catalog: selecting eligible episodes of season %d: %w", scope.SeasonID, err)
	}
	defer rows.Close()

	return scanEpisodes(rows)
}

// UpdateFlags sets flag on every episode of scope matching c and returns
// the number of rows changed.
func (t *Tx) UpdateFlags(
	ctx context.Context, scope episode.SeasonScope, c episode.Criteria, flag episode.Flag,
) (int64, error) {
	where, args := criteriaSQL(c)
	args = append([]any{int(flag)}, scopeArgs(scope, args...)...)

	res, err := t.tx.ExecContext(ctx, sqlUpdateScopedFlags+where, args...)
	if err != nil {
		return 0, fmt.Errorf("catalog: updating flags of season %d: %w", scope.SeasonID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("catalog: counting updated episodes of season %d: %w", scope.SeasonID, err)
	}

	t.logger.Debug("episode flags updated",
		slog.Any("scope", scope),
		slog.String("flag", flag.String()),
		slog.Int64("rows", n),
	)

	return n, nil
}

// TopReleased returns the highest-numbered episode of scope with a known air
// date at or before cutoff. ok is false when there is none.
func (t *Tx) TopReleased(
	ctx context.Context, scope episode.SeasonScope, cutoff time.Time,
) (id episode.EpisodeID, ok bool, err error) {
	err = t.tx.QueryRowContext(ctx, sqlTopReleased,
		int64(scope.ShowID), int64(scope.SeasonID), cutoff.UnixMilli(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("catalog: querying last released episode of season %d: %w", scope.SeasonID, err)
	}

	return id, true, nil
}

// SetLastWatched stores the season's last-watched pointer. PointerNone
// clears it, PointerNotFound leaves it unchanged. With markTime the season's
// last-watched time becomes now.
func (t *Tx) SetLastWatched(
	ctx context.Context, scope episode.SeasonScope, ptr episode.Pointer, markTime bool, now time.Time,
) error {
	var (
		sets []string
		args []any
	)

	switch ptr.State() {
	case episode.PointerNone:
		sets = append(sets, "last_watched_id = NULL")
	case episode.PointerSet:
		id, _ := ptr.EpisodeID()
		sets = append(sets, "last_watched_id = ?")
		args = append(args, int64(id))
	case episode.PointerNotFound:
		// Keep whatever pointer the season already has.
	}

	if markTime {
		sets = append(sets, "last_watched_at = ?")
		args = append(args, now.UnixMilli())
	}

	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE seasons SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND show_id = ?`
	args = append(args, int64(scope.SeasonID), int64(scope.ShowID))

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("catalog: setting last watched of season %d: %w", scope.SeasonID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: setting last watched of season %d: %w", scope.SeasonID, err)
	}

	if n == 0 {
		return fmt.Errorf("catalog: season %d of show %d: %w", scope.SeasonID, scope.ShowID, ErrNotFound)
	}

	return nil
}

// criteriaSQL renders c as a WHERE fragment (starting with " AND") and its
// positional arguments.
func criteriaSQL(c episode.Criteria) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)

	if len(c.CurrentFlags) == 0 {
		// Mirrors Criteria.Matches: no allowed flags, no rows.
		return " AND 0", nil
	}

	b.WriteString(" AND watched IN (")

	for i, f := range c.CurrentFlags {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString("?")

		args = append(args, int(f))
	}

	b.WriteString(")")

	if c.RequireReleaseDate {
		b.WriteString(" AND first_aired_ms IS NOT NULL")
	}

	if !c.ReleasedBefore.IsZero() {
		b.WriteString(" AND first_aired_ms IS NOT NULL AND first_aired_ms <= ?")

		args = append(args, c.ReleasedBefore.UnixMilli())
	}

	return b.String(), args
}

func scopeArgs(scope episode.SeasonScope, rest ...any) []any {
	return append([]any{int64(scope.ShowID), int64(scope.SeasonID)}, rest...)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(r rowScanner) (episode.Episode, error) {
	var (
		e        episode.Episode
		released sql.NullInt64
		flag     int
	)

	if err := r.Scan(&e.ID, &e.ShowID, &e.SeasonID, &e.SeasonNumber, &e.Number,
		&e.Title, &released, &flag); err != nil {
		return episode.Episode{}, fmt.Errorf("catalog: scanning episode row: %w", err)
	}

	e.Released = fromNullMillis(released)
	e.Flag = episode.Flag(flag)

	if !e.Flag.Valid() {
		return episode.Episode{}, fmt.Errorf("catalog: episode %d has invalid flag %d: %w",
			e.ID, flag, episode.ErrInvalidFlag)
	}

	return e, nil
}

func scanEpisodes(rows *sql.Rows) ([]episode.Episode, error) {
	var out []episode.Episode

	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterating episode rows: %w", err)
	}

	return out, nil
}
