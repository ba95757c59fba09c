package propagate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/episodesync/internal/catalog"
	"github.com/tonimelisma/episodesync/internal/episode"
)

// newSeededStore opens a SQLite catalog holding testScope with eps 1-3 aired
// in the past and ep2 watched.
func newSeededStore(t *testing.T) *catalog.Store {
	t.Helper()

	ctx := context.Background()

	store, err := catalog.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"), testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	require.NoError(t, store.UpsertShow(ctx, catalog.Show{ID: testScope.ShowID, Title: "Test Show"}))
	require.NoError(t, store.UpsertSeason(ctx, catalog.Season{
		ID: testScope.SeasonID, ShowID: testScope.ShowID, Number: testScope.SeasonNumber,
	}))
	require.NoError(t, store.UpsertEpisodes(ctx, []episode.Episode{
		aired(101, 1, testNow.Add(-21*24*time.Hour), episode.Unwatched),
		aired(102, 2, testNow.Add(-14*24*time.Hour), episode.Watched),
		aired(103, 3, testNow.Add(-7*24*time.Hour), episode.Unwatched),
	}))

	return store
}

func storeFlags(t *testing.T, store *catalog.Store) []episode.Flag {
	t.Helper()

	eps, err := store.SeasonEpisodes(context.Background(), testScope.SeasonID)
	require.NoError(t, err)

	return flagsOf(eps)
}

func TestStore_WatchSeason(t *testing.T) {
	store := newSeededStore(t)

	res := runJob(t, NewStoreCatalog(store), episode.Watched, func(c *JobConfig) {
		c.Journal = store
	})

	assert.Equal(t, []episode.Flag{episode.Watched, episode.Watched, episode.Watched}, storeFlags(t, store))
	assert.Equal(t, []int{1, 3}, changedNumbers(res))
	assert.Equal(t, []episode.Change{
		{EpisodeID: 101, Number: 1, Flag: episode.Watched, Previous: episode.Unwatched},
		{EpisodeID: 103, Number: 3, Flag: episode.Watched, Previous: episode.Unwatched},
	}, res.Mirror.Changes)

	season, err := store.Season(context.Background(), testScope.SeasonID)
	require.NoError(t, err)
	assert.Equal(t, episode.EpisodeID(103), season.LastWatchedID)
	assert.Equal(t, testNow.UnixMilli(), season.LastWatchedAt.UnixMilli())

	runs, err := store.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Changed)
}

func TestStore_ResetSeason(t *testing.T) {
	store := newSeededStore(t)
	cat := NewStoreCatalog(store)

	runJob(t, cat, episode.Watched)
	res := runJob(t, cat, episode.Unwatched)

	assert.Equal(t, []episode.Flag{episode.Unwatched, episode.Unwatched, episode.Unwatched}, storeFlags(t, store))
	assert.Equal(t, []int{1, 2, 3}, changedNumbers(res))
	assert.Equal(t, episode.PointerNone, res.Pointer.State())

	season, err := store.Season(context.Background(), testScope.SeasonID)
	require.NoError(t, err)
	assert.Zero(t, season.LastWatchedID)
}

func TestStore_ResetFromSeededState(t *testing.T) {
	store := newSeededStore(t)

	res := runJob(t, NewStoreCatalog(store), episode.Unwatched)

	assert.Equal(t, []episode.Flag{episode.Unwatched, episode.Unwatched, episode.Unwatched}, storeFlags(t, store))
	assert.Equal(t, []int{2}, changedNumbers(res), "only rows that were watched or skipped")
}

func TestStore_IdempotentWatch(t *testing.T) {
	store := newSeededStore(t)
	cat := NewStoreCatalog(store)

	runJob(t, cat, episode.Watched)
	second := runJob(t, cat, episode.Watched)

	assert.Empty(t, second.Changes)
	assert.Nil(t, second.Tracker)
	assert.Equal(t, []episode.Flag{episode.Watched, episode.Watched, episode.Watched}, storeFlags(t, store))
}

func TestStore_UnknownSeasonAborts(t *testing.T) {
	store := newSeededStore(t)

	res, err := newTestJob(t, NewStoreCatalog(store), episode.Watched, func(c *JobConfig) {
		c.Scope = episode.SeasonScope{ShowID: testScope.ShowID, SeasonID: 999, SeasonNumber: 4}
	}).Run(context.Background())

	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, StateAborted, res.State)
}
