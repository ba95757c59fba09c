package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/episodesync/internal/episode"
)

const (
	sqlUpsertShow = `INSERT INTO shows (id, title) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title`

	sqlUpsertSeason = `INSERT INTO seasons (id, show_id, number) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 show_id = excluded.show_id,
		 number = excluded.number`

	// The flag argument is bound twice. NULL inserts unwatched and keeps the
	// stored flag of an existing row.
	sqlUpsertEpisode = `INSERT INTO episodes
		(id, show_id, season_id, season_number, number, title, first_aired_ms, watched)
		VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE(?, 0))
		ON CONFLICT(id) DO UPDATE SET
		 show_id = excluded.show_id,
		 season_id = excluded.season_id,
		 season_number = excluded.season_number,
		 number = excluded.number,
		 title = excluded.title,
		 first_aired_ms = excluded.first_aired_ms,
		 watched = COALESCE(?, episodes.watched)`

	sqlGetSeason = `SELECT id, show_id, number, last_watched_id, last_watched_at
		FROM seasons WHERE id = ?`

	sqlFindSeason = `SELECT id, show_id, number FROM seasons
		WHERE show_id = ? AND number = ?`

	sqlSeasonEpisodes = `SELECT ` + sqlEpisodeColumns + `
		FROM episodes WHERE season_id = ? ORDER BY number ASC`
)

// Show is a show row.
type Show struct {
	ID    episode.ShowID
	Title string
}

// Season is a season row with its last-watched state.
type Season struct {
	ID            episode.SeasonID
	ShowID        episode.ShowID
	Number        int
	LastWatchedID episode.EpisodeID // 0: no pointer
	LastWatchedAt time.Time         // zero: never marked
}

// Scope returns the season scope of s.
func (s Season) Scope() episode.SeasonScope {
	return episode.SeasonScope{ShowID: s.ShowID, SeasonID: s.ID, SeasonNumber: s.Number}
}

// UpsertShow inserts or renames a show.
func (s *Store) UpsertShow(ctx context.Context, show Show) error {
	return s.InTx(ctx, func(t *Tx) error { return t.UpsertShow(ctx, show) })
}

// UpsertSeason inserts or updates a season. The last-watched state is not
// touched.
func (s *Store) UpsertSeason(ctx context.Context, season Season) error {
	return s.InTx(ctx, func(t *Tx) error { return t.UpsertSeason(ctx, season) })
}

// UpsertEpisodes writes all episodes, flags included, in one transaction.
func (s *Store) UpsertEpisodes(ctx context.Context, eps []episode.Episode) error {
	return s.InTx(ctx, func(t *Tx) error {
		for i := range eps {
			if err := t.UpsertEpisode(ctx, eps[i], &eps[i].Flag); err != nil {
				return err
			}
		}

		t.logger.Debug("episodes upserted", slog.Int("count", len(eps)))

		return nil
	})
}

// UpsertShow inserts or renames a show.
func (t *Tx) UpsertShow(ctx context.Context, show Show) error {
	if _, err := t.tx.ExecContext(ctx, sqlUpsertShow, int64(show.ID), show.Title); err != nil {
		return fmt.Errorf("catalog: upserting show %d: %w", show.ID, err)
	}

	return nil
}

// UpsertSeason inserts or updates a season without touching its
// last-watched state.
func (t *Tx) UpsertSeason(ctx context.Context, season Season) error {
	_, err := t.tx.ExecContext(ctx, sqlUpsertSeason,
		int64(season.ID), int64(season.ShowID), season.Number)
	if err != nil {
		return fmt.Errorf("catalog: upserting season %d: %w", season.ID, err)
	}

	return nil
}

// UpsertEpisode inserts or updates e. A nil flag keeps the flag of an
// existing row and inserts a new one as unwatched; e.Flag is ignored.
func (t *Tx) UpsertEpisode(ctx context.Context, e episode.Episode, flag *episode.Flag) error {
	var watched sql.NullInt64

	if flag != nil {
		if !flag.Valid() {
			return fmt.Errorf("catalog: episode %d: %w", e.ID, episode.ErrInvalidFlag)
		}

		watched = sql.NullInt64{Int64: int64(*flag), Valid: true}
	}

	_, err := t.tx.ExecContext(ctx, sqlUpsertEpisode,
		int64(e.ID), int64(e.ShowID), int64(e.SeasonID), e.SeasonNumber, e.Number,
		e.Title, nullMillis(e.Released), watched, watched,
	)
	if err != nil {
		return fmt.Errorf("catalog: upserting episode %d: %w", e.ID, err)
	}

	return nil
}

// Season returns the season with the given id.
func (s *Store) Season(ctx context.Context, id episode.SeasonID) (*Season, error) {
	var (
		season Season
		lastID sql.NullInt64
		lastAt sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, sqlGetSeason, int64(id)).
		Scan(&season.ID, &season.ShowID, &season.Number, &lastID, &lastAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: season %d: %w", id, ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("catalog: reading season %d: %w", id, err)
	}

	if lastID.Valid {
		season.LastWatchedID = episode.EpisodeID(lastID.Int64)
	}

	season.LastWatchedAt = fromNullMillis(lastAt)

	return &season, nil
}

// FindSeason resolves a show id and season number to a scope.
func (s *Store) FindSeason(ctx context.Context, showID episode.ShowID, number int) (episode.SeasonScope, error) {
	var season Season

	err := s.db.QueryRowContext(ctx, sqlFindSeason, int64(showID), number).
		Scan(&season.ID, &season.ShowID, &season.Number)
	if errors.Is(err, sql.ErrNoRows) {
		return episode.SeasonScope{}, fmt.Errorf("catalog: season %d of show %d: %w", number, showID, ErrNotFound)
	}

	if err != nil {
		return episode.SeasonScope{}, fmt.Errorf("catalog: finding season %d of show %d: %w", number, showID, err)
	}

	return season.Scope(), nil
}

// SeasonEpisodes returns every episode of a season ordered by number.
func (s *Store) SeasonEpisodes(ctx context.Context, id episode.SeasonID) ([]episode.Episode, error) {
	rows, err := s.db.QueryContext(ctx, sqlSeasonEpisodes, int64(id))
	if err != nil {
		return nil, fmt.Errorf("catalog: listing episodes of season %d: %w", id, err)
	}
	defer rows.Close()

	return scanEpisodes(rows)
}
