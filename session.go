package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tonimelisma/episodesync/internal/catalog"
	"github.com/tonimelisma/episodesync/internal/episode"
	"github.com/tonimelisma/episodesync/internal/mirror"
	"github.com/tonimelisma/episodesync/internal/notify"
	"github.com/tonimelisma/episodesync/internal/propagate"
	"github.com/tonimelisma/episodesync/internal/remote"
	"github.com/tonimelisma/episodesync/internal/trakt"
)

// dataDirPerms is used for every directory episodesync creates.
const dataDirPerms = 0o700

// seasonSession bundles the collaborators of a season command. Close
// releases them in reverse order of creation.
type seasonSession struct {
	store *catalog.Store
	stamp *notify.Stamp // nil when notify.stamp_file is empty
	queue *propagate.Queue
}

// openStore opens the catalog, creating its directory on first use.
func openStore(ctx context.Context, cc *CLIContext) (*catalog.Store, error) {
	path := cc.Cfg.Catalog.DBPath

	if err := os.MkdirAll(filepath.Dir(path), dataDirPerms); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	return catalog.Open(ctx, path, cc.Logger)
}

// newSeasonSession wires the queue. withRemote false leaves the dispatcher
// out so nothing leaves the machine.
func newSeasonSession(ctx context.Context, cc *CLIContext, withRemote bool) (*seasonSession, error) {
	store, err := openStore(ctx, cc)
	if err != nil {
		return nil, err
	}

	s := &seasonSession{store: store}

	var notifier propagate.Notifier

	if path := cc.Cfg.Notify.StampFile; path != "" {
		s.stamp = notify.NewStamp(path, cc.Logger)
		notifier = s.stamp
	}

	var dispatcher *propagate.Dispatcher
	if withRemote {
		dispatcher = newDispatcher(ctx, cc)
	}

	// Validated by config.Validate.
	format, _ := episode.ParseNumberFormat(cc.Cfg.Display.NumberFormat)

	s.queue = propagate.NewQueue(propagate.QueueConfig{
		Catalog:      propagate.NewStoreCatalog(store),
		Journal:      store,
		Notifier:     notifier,
		Printer:      displayPrinter(cc),
		NumberFormat: format,
		Dispatcher:   dispatcher,
		Logger:       cc.Logger,
	})

	return s, nil
}

// Close flushes the stamp and closes the catalog.
func (s *seasonSession) Close() error {
	if s.stamp != nil {
		s.stamp.Close()
	}

	return s.store.Close()
}

func displayPrinter(cc *CLIContext) *message.Printer {
	return message.NewPrinter(language.Make(cc.Cfg.Display.Language))
}

// newDispatcher builds clients for the enabled remotes. A tracker without a
// saved login is left out with a hint rather than failing the local update.
func newDispatcher(ctx context.Context, cc *CLIContext) *propagate.Dispatcher {
	d := &propagate.Dispatcher{Logger: cc.Logger}

	if mc := cc.Cfg.Mirror; mc.Enabled {
		d.Mirror = mirror.NewClient(
			mc.BaseURL,
			&http.Client{Timeout: mc.TimeoutDuration()},
			remote.APIKey(mirror.APIKeyHeader, mc.APIKey),
			cc.Logger,
		)
	}

	if tc := cc.Cfg.Tracker; tc.Enabled {
		tokens, err := trakt.TokenSourceFromPath(ctx, traktAuthConfig(cc), cc.Logger)

		switch {
		case errors.Is(err, trakt.ErrNotLoggedIn):
			cc.Statusf("trakt.tv is enabled but not logged in; run 'episodesync trakt login'\n")
		case err != nil:
			cc.Logger.Warn("trakt token unavailable, skipping tracker", slog.String("error", err.Error()))
		default:
			d.Tracker = trakt.NewClient(
				tc.BaseURL, tc.ClientID, &http.Client{Timeout: tc.TimeoutDuration()}, tokens, cc.Logger,
			)
		}
	}

	return d
}

func traktAuthConfig(cc *CLIContext) trakt.AuthConfig {
	tc := cc.Cfg.Tracker

	return trakt.AuthConfig{
		BaseURL:      tc.BaseURL,
		ClientID:     tc.ClientID,
		ClientSecret: tc.ClientSecret,
		TokenPath:    tc.TokenFile,
	}
}
