package propagate

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/tonimelisma/episodesync/internal/catalog"
	"github.com/tonimelisma/episodesync/internal/episode"
)

var (
	testNow   = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	testScope = episode.SeasonScope{ShowID: 81189, SeasonID: 30272, SeasonNumber: 3}

	errDisk = errors.New("disk I/O error")
)

// testLogger returns a debug-level logger that writes to t.Log.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// aired returns an episode of testScope aired at the given time.
func aired(id episode.EpisodeID, number int, at time.Time, flag episode.Flag) episode.Episode {
	return episode.Episode{
		ID:           id,
		ShowID:       testScope.ShowID,
		SeasonID:     testScope.SeasonID,
		SeasonNumber: testScope.SeasonNumber,
		Number:       number,
		Released:     at,
		Flag:         flag,
	}
}

// memSeason is the last-watched state of one season.
type memSeason struct {
	lastID episode.EpisodeID
	lastAt time.Time
}

// memCatalog is an in-memory Catalog with per-operation failure injection.
// A failed transaction restores the state it started from.
type memCatalog struct {
	mu       sync.Mutex
	episodes map[episode.EpisodeID]episode.Episode
	seasons  map[episode.SeasonID]memSeason

	failOn map[string]error // operation name -> error
	// updateSkew is added to the row count UpdateFlags reports.
	updateSkew int64
	// topQueries counts TopReleased calls.
	topQueries int
}

func newMemCatalog(eps ...episode.Episode) *memCatalog {
	c := &memCatalog{
		episodes: make(map[episode.EpisodeID]episode.Episode),
		seasons:  map[episode.SeasonID]memSeason{testScope.SeasonID: {}},
		failOn:   make(map[string]error),
	}

	for _, e := range eps {
		c.episodes[e.ID] = e
	}

	return c
}

func (c *memCatalog) InTx(_ context.Context, fn func(CatalogTx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	episodes := maps.Clone(c.episodes)
	seasons := maps.Clone(c.seasons)

	if err := fn(&memTx{c: c}); err != nil {
		c.episodes = episodes
		c.seasons = seasons

		return err
	}

	return nil
}

// season returns the episodes of testScope ordered by number.
func (c *memCatalog) season() []episode.Episode {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.inScope(testScope)
}

func (c *memCatalog) lastWatched() memSeason {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.seasons[testScope.SeasonID]
}

func (c *memCatalog) inScope(scope episode.SeasonScope) []episode.Episode {
	var out []episode.Episode

	for _, e := range c.episodes {
		if e.ShowID == scope.ShowID && e.SeasonID == scope.SeasonID {
			out = append(out, e)
		}
	}

	slices.SortFunc(out, func(a, b episode.Episode) int { return a.Number - b.Number })

	return out
}

type memTx struct {
	c *memCatalog
}

func (t *memTx) fail(op string) error {
	return t.c.failOn[op]
}

func (t *memTx) EligibleEpisodes(
	_ context.Context, scope episode.SeasonScope, crit episode.Criteria,
) ([]episode.Episode, error) {
	if err := t.fail("eligible"); err != nil {
		return nil, err
	}

	var out []episode.Episode

	for _, e := range t.c.inScope(scope) {
		if crit.Matches(e) {
			out = append(out, e)
		}
	}

	return out, nil
}

func (t *memTx) UpdateFlags(
	_ context.Context, scope episode.SeasonScope, crit episode.Criteria, flag episode.Flag,
) (int64, error) {
	if err := t.fail("update"); err != nil {
		return 0, err
	}

	var n int64

	for _, e := range t.c.inScope(scope) {
		if crit.Matches(e) {
			e.Flag = flag
			t.c.episodes[e.ID] = e
			n++
		}
	}

	return n + t.c.updateSkew, nil
}

func (t *memTx) TopReleased(
	_ context.Context, scope episode.SeasonScope, cutoff time.Time,
) (episode.EpisodeID, bool, error) {
	t.c.topQueries++

	if err := t.fail("top"); err != nil {
		return 0, false, err
	}

	eps := t.c.inScope(scope)
	for i := len(eps) - 1; i >= 0; i-- {
		e := eps[i]
		if e.HasReleaseDate() && e.Released.UnixMilli() <= cutoff.UnixMilli() {
			return e.ID, true, nil
		}
	}

	return 0, false, nil
}

func (t *memTx) SetLastWatched(
	_ context.Context, scope episode.SeasonScope, ptr episode.Pointer, markTime bool, now time.Time,
) error {
	if err := t.fail("pointer"); err != nil {
		return err
	}

	s, ok := t.c.seasons[scope.SeasonID]
	if !ok {
		return catalog.ErrNotFound
	}

	switch ptr.State() {
	case episode.PointerNone:
		s.lastID = 0
	case episode.PointerSet:
		s.lastID, _ = ptr.EpisodeID()
	case episode.PointerNotFound:
	}

	if markTime {
		s.lastAt = now
	}

	t.c.seasons[scope.SeasonID] = s

	return nil
}

// recordingJournal keeps every recorded run.
type recordingJournal struct {
	mu   sync.Mutex
	runs []catalog.Run
	err  error
}

func (j *recordingJournal) RecordRun(_ context.Context, r catalog.Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.runs = append(j.runs, r)

	return j.err
}

// countingNotifier counts signals.
type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Notify() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.n
}

// changedNumbers returns the episode numbers of a result's changes.
func changedNumbers(res *Result) []int {
	out := make([]int, 0, len(res.Changes))
	for _, c := range res.Changes {
		out = append(out, c.Number)
	}

	return out
}

func flagsOf(eps []episode.Episode) []episode.Flag {
	out := make([]episode.Flag, 0, len(eps))
	for _, e := range eps {
		out = append(out, e.Flag)
	}

	return out
}
