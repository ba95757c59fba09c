package propagate

import (
	"context"
	"time"

	"github.com/tonimelisma/episodesync/internal/catalog"
	"github.com/tonimelisma/episodesync/internal/episode"
)

// PointerQuerier answers the last-watched query. Satisfied by *catalog.Tx.
type PointerQuerier interface {
	TopReleased(ctx context.Context, scope episode.SeasonScope, cutoff time.Time) (episode.EpisodeID, bool, error)
}

// CatalogTx is what a job needs from the local catalog inside its
// transaction. Satisfied by *catalog.Tx.
type CatalogTx interface {
	PointerQuerier
	EligibleEpisodes(ctx context.Context, scope episode.SeasonScope, c episode.Criteria) ([]episode.Episode, error)
	UpdateFlags(ctx context.Context, scope episode.SeasonScope, c episode.Criteria, flag episode.Flag) (int64, error)
	SetLastWatched(ctx context.Context, scope episode.SeasonScope, ptr episode.Pointer, markTime bool, now time.Time) error
}

// Catalog runs a function inside one catalog transaction.
type Catalog interface {
	InTx(ctx context.Context, fn func(CatalogTx) error) error
}

// Journal records finished job runs. Satisfied by *catalog.Store.
type Journal interface {
	RecordRun(ctx context.Context, r catalog.Run) error
}

// Notifier receives the "data changed" signal after a job is done. Notify
// must not block.
type Notifier interface {
	Notify()
}

// storeCatalog adapts *catalog.Store to Catalog.
type storeCatalog struct {
	store *catalog.Store
}

// NewStoreCatalog returns a Catalog backed by the SQLite catalog.
func NewStoreCatalog(s *catalog.Store) Catalog {
	return storeCatalog{store: s}
}

func (c storeCatalog) InTx(ctx context.Context, fn func(CatalogTx) error) error {
	return c.store.InTx(ctx, func(tx *catalog.Tx) error {
		return fn(tx)
	})
}
