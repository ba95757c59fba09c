package propagate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/episodesync/internal/episode"
	"github.com/tonimelisma/episodesync/internal/trakt"
)

// ErrRemoteUnavailable wraps failures to deliver a payload to a remote. Local
// state is already committed when it is returned.
var ErrRemoteUnavailable = errors.New("propagate: remote unavailable")

// MirrorClient receives the per-episode season payload.
type MirrorClient interface {
	PutSeason(ctx context.Context, payload episode.SeasonPayload) error
}

// TrackerClient receives watch history changes.
type TrackerClient interface {
	SendHistory(ctx context.Context, req trakt.HistoryRequest) error
}

// Dispatcher delivers a finished job's payloads to the remotes. A nil client
// means the service is disabled.
type Dispatcher struct {
	Mirror  MirrorClient
	Tracker TrackerClient
	Logger  *slog.Logger
}

// Dispatch sends both payloads of res in parallel. Both are always
// attempted; failures are joined and wrapped with ErrRemoteUnavailable.
// Aborted jobs and empty payloads send nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, res *Result) error {
	if d == nil || res == nil || res.State != StateDone {
		return nil
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("run_id", res.RunID))

	var (
		mu   sync.Mutex
		errs []error
	)

	collect := func(remote string, err error) {
		logger.Warn("remote delivery failed",
			slog.String("remote", remote),
			slog.String("error", err.Error()),
		)

		mu.Lock()
		errs = append(errs, fmt.Errorf("%s: %w", remote, err))
		mu.Unlock()
	}

	// Plain Group: one remote failing must not cancel the other.
	var g errgroup.Group

	if d.Mirror != nil && res.Mirror != nil && !res.Mirror.Empty() {
		payload := *res.Mirror

		g.Go(func() error {
			if err := d.Mirror.PutSeason(ctx, payload); err != nil {
				collect("mirror", err)
				return nil
			}

			logger.Debug("mirror updated", slog.Int("episodes", len(payload.Changes)))

			return nil
		})
	}

	if d.Tracker != nil && res.Tracker != nil {
		req := *res.Tracker

		g.Go(func() error {
			if err := d.Tracker.SendHistory(ctx, req); err != nil {
				collect("tracker", err)
				return nil
			}

			logger.Debug("tracker updated", slog.String("action", string(req.Action)))

			return nil
		})
	}

	_ = g.Wait()

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrRemoteUnavailable, errors.Join(errs...))
}
