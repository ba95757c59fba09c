package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tonimelisma/episodesync/internal/episode"
)

const (
	sqlInsertRun = `INSERT INTO job_runs
		(run_id, kind, show_id, season_id, target, state, changed, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlRecentRuns = `SELECT run_id, kind, show_id, season_id, target, state, changed,
		started_at, finished_at, error
		FROM job_runs ORDER BY started_at DESC, run_id LIMIT ?`
)

// Run is one journal entry: the outcome of a single propagation job.
type Run struct {
	ID         string
	Kind       string
	ShowID     episode.ShowID
	SeasonID   episode.SeasonID
	Target     episode.Flag
	State      string
	Changed    int
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string // empty on success
}

// RecordRun appends a run to the journal.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, sqlInsertRun,
		r.ID, r.Kind, int64(r.ShowID), int64(r.SeasonID), int(r.Target), r.State, r.Changed,
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), nullString(r.Error),
	)
	if err != nil {
		return fmt.Errorf("catalog: recording run %s: %w", r.ID, err)
	}

	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, sqlRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var (
			r                 Run
			target            int
			started, finished int64
			errMsg            sql.NullString
		)

		if err := rows.Scan(&r.ID, &r.Kind, &r.ShowID, &r.SeasonID, &target, &r.State, &r.Changed,
			&started, &finished, &errMsg); err != nil {
			return nil, fmt.Errorf("catalog: scanning run row: %w", err)
		}

		r.Target = episode.Flag(target)
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		r.Error = errMsg.String
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterating run rows: %w", err)
	}

	return runs, nil
}
