package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher error backoff bounds.
const (
	watchErrInitBackoff = 100 * time.Millisecond
	watchErrMaxBackoff  = 5 * time.Second
	watchErrBackoffMult = 2
)

// Refresh is one observed stamp update.
type Refresh struct {
	At time.Time // time written into the stamp
}

// Watcher reports updates of a stamp file written by another process.
type Watcher struct {
	path   string
	logger *slog.Logger
}

// NewWatcher creates a watcher for the stamp file at path.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{path: filepath.Clean(path), logger: logger}
}

// Run calls onRefresh for every stamp update until ctx is canceled. The
// stamp is replaced by rename, so the directory is watched rather than the
// file.
func (w *Watcher) Run(ctx context.Context, onRefresh func(Refresh)) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("notify: creating directory %s: %w", dir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("notify: creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("notify: watching %s: %w", dir, err)
	}

	w.logger.Info("watching refresh stamp", slog.String("path", w.path))

	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			w.handleEvent(ev, onRefresh)
			errBackoff = watchErrInitBackoff

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("stamp watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if sleepErr := sleepCtx(ctx, errBackoff); sleepErr != nil {
				return nil
			}

			errBackoff *= watchErrBackoffMult
			if errBackoff > watchErrMaxBackoff {
				errBackoff = watchErrMaxBackoff
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event, onRefresh func(Refresh)) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}

	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	at, err := ReadStamp(w.path)
	if err != nil {
		// A write racing the read; the next event carries the final content.
		w.logger.Debug("stamp not readable yet", slog.String("error", err.Error()))
		return
	}

	onRefresh(Refresh{At: at})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
