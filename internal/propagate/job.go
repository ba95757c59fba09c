package propagate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/message"

	"github.com/tonimelisma/episodesync/internal/catalog"
	"github.com/tonimelisma/episodesync/internal/episode"
	"github.com/tonimelisma/episodesync/internal/trakt"
)

var (
	// ErrStorage wraps every local catalog failure. A job that fails with it
	// changed nothing and may be retried as a whole.
	ErrStorage = errors.New("propagate: local catalog failure")

	// ErrJobAlreadyRun is returned by a second call to Job.Run.
	ErrJobAlreadyRun = errors.New("propagate: job already run")

	// errRowsChanged means the rows updated differ from the rows selected in
	// the same transaction.
	errRowsChanged = errors.New("eligible rows changed during update")
)

// JobConfig holds the inputs of one job. Scope, Target, Now and Catalog are
// required.
type JobConfig struct {
	Kind         Kind // defaults to KindSeasonWatched
	Scope        episode.SeasonScope
	Target       episode.Flag
	Now          time.Time // reference time for release filtering and mark time
	Catalog      Catalog
	Journal      Journal  // optional
	Notifier     Notifier // optional
	Printer      *message.Printer
	NumberFormat episode.NumberFormat
	Logger       *slog.Logger
}

// Result describes what a job did. On abort only the identifying fields and
// State are set: no payloads, no confirmation.
type Result struct {
	RunID  string
	Kind   Kind
	Scope  episode.SeasonScope
	Target episode.Flag
	State  State

	// Trace lists every state the job passed through, in order.
	Trace []State

	Changes  []episode.Change
	Pointer  episode.Pointer
	MarkTime bool

	// Mirror is always set on success, possibly with no changes.
	Mirror *episode.SeasonPayload
	// Tracker is nil when the target is not reported to the tracking service.
	Tracker *trakt.HistoryRequest

	Confirmation    string
	HasConfirmation bool
}

// Job is a single-use season propagation job.
type Job struct {
	cfg     JobConfig
	policy  Policy
	runID   string
	logger  *slog.Logger
	started atomic.Bool
	nowFunc func() time.Time // wall clock for the journal; injectable for tests
}

// NewJob validates cfg and returns a job ready to run. An out-of-range
// target flag is a programming error and panics.
func NewJob(cfg JobConfig) (*Job, error) {
	if !cfg.Target.Valid() {
		panic(fmt.Sprintf("propagate: invalid target flag %d", int(cfg.Target)))
	}

	if err := cfg.Scope.Validate(); err != nil {
		return nil, fmt.Errorf("propagate: %w", err)
	}

	if cfg.Catalog == nil {
		return nil, errors.New("propagate: catalog is required")
	}

	if cfg.Now.IsZero() {
		return nil, errors.New("propagate: reference time is required")
	}

	if cfg.Kind == "" {
		cfg.Kind = KindSeasonWatched
	}

	policy, err := PolicyFor(cfg.Kind)
	if err != nil {
		return nil, err
	}

	if cfg.Printer == nil {
		cfg.Printer = DefaultPrinter()
	}

	if cfg.NumberFormat == "" {
		cfg.NumberFormat = episode.NumberFormatDefault
	}

	runID := uuid.NewString()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Job{
		cfg:     cfg,
		policy:  policy,
		runID:   runID,
		logger:  logger.With(slog.String("run_id", runID)),
		nowFunc: time.Now,
	}, nil
}

// RunID returns the job's unique id.
func (j *Job) RunID() string {
	return j.runID
}

// Run executes the job once. On a storage failure the returned Result is in
// StateAborted and the error wraps ErrStorage.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	if !j.started.CompareAndSwap(false, true) {
		return nil, ErrJobAlreadyRun
	}

	startedAt := j.nowFunc()
	res := &Result{
		RunID:  j.runID,
		Kind:   j.cfg.Kind,
		Scope:  j.cfg.Scope,
		Target: j.cfg.Target,
		State:  StateCreated,
		Trace:  []State{StateCreated},
	}

	j.logger.Info("season job started",
		slog.Any("scope", j.cfg.Scope),
		slog.String("target", j.cfg.Target.String()),
		slog.Time("now", j.cfg.Now),
	)

	if err := j.applyLocal(ctx, res); err != nil {
		from := res.State
		j.advance(res, StateAborted)

		// Rows selected inside the rolled-back transaction are meaningless.
		res.Changes = nil
		res.Pointer = episode.Pointer{}
		res.MarkTime = false

		j.logger.Error("season job aborted",
			slog.String("from", from.String()),
			slog.String("error", err.Error()),
		)
		j.record(ctx, res, startedAt, err)

		return res, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	j.assembleRemote(res)

	res.Confirmation, res.HasConfirmation = j.policy.Confirmation(
		j.cfg.Printer, j.cfg.NumberFormat, j.cfg.Target, j.cfg.Scope.SeasonNumber)
	j.advance(res, StateConfirmationReady)
	j.advance(res, StateDone)

	if j.cfg.Notifier != nil {
		j.cfg.Notifier.Notify()
	}

	j.logger.Info("season job done",
		slog.Int("changed", len(res.Changes)),
		slog.Any("pointer", res.Pointer),
		slog.Bool("tracked", res.Tracker != nil),
	)
	j.record(ctx, res, startedAt, nil)

	return res, nil
}

// applyLocal updates the flags and the last-watched pointer in a single
// transaction. The eligible rows are selected first, in the same
// transaction, because after the update they no longer match the criteria
// and they are exactly the rows the remotes must hear about.
func (j *Job) applyLocal(ctx context.Context, res *Result) error {
	scope, target, now := j.cfg.Scope, j.cfg.Target, j.cfg.Now
	criteria := j.policy.Criteria(target, now)

	var (
		ptr      episode.Pointer
		markTime bool
	)

	err := j.cfg.Catalog.InTx(ctx, func(tx CatalogTx) error {
		eligible, err := tx.EligibleEpisodes(ctx, scope, criteria)
		if err != nil {
			return err
		}

		n, err := tx.UpdateFlags(ctx, scope, criteria, target)
		if err != nil {
			return err
		}

		if n != int64(len(eligible)) {
			return fmt.Errorf("propagate: %w: selected %d, updated %d", errRowsChanged, len(eligible), n)
		}

		res.Changes = changesOf(eligible, target)
		j.advance(res, StateLocalUpdateApplied)

		ptr, err = j.policy.ResolvePointer(ctx, tx, scope, target, now)
		if err != nil {
			return err
		}

		markTime = j.policy.MarkTime(target)

		return tx.SetLastWatched(ctx, scope, ptr, markTime, now)
	})
	if err != nil {
		return err
	}

	if ptr.State() == episode.PointerNotFound {
		j.logger.Debug("no released episode for last watched pointer")
	}

	// The pointer counts as updated only once the transaction has committed.
	res.Pointer = ptr
	res.MarkTime = markTime
	j.advance(res, StatePointerUpdated)

	return nil
}

// assembleRemote builds the payloads from the changed rows only.
func (j *Job) assembleRemote(res *Result) {
	payload := episode.NewSeasonPayload(j.cfg.Scope, j.cfg.Target, res.Changes)
	res.Mirror = &payload

	if j.policy.Tracked(j.cfg.Target) {
		if req, ok := trakt.BuildHistoryRequest(payload); ok {
			res.Tracker = &req
		}
	}

	j.advance(res, StateRemoteAssembled)
}

// advance moves res to the next state. An illegal transition is a bug.
func (j *Job) advance(res *Result, to State) {
	if !res.State.canMoveTo(to) {
		panic(fmt.Sprintf("propagate: illegal transition %s → %s", res.State, to))
	}

	res.State = to
	res.Trace = append(res.Trace, to)
}

// record writes the run journal entry. A journal failure is logged only.
func (j *Job) record(ctx context.Context, res *Result, startedAt time.Time, runErr error) {
	if j.cfg.Journal == nil {
		return
	}

	run := catalog.Run{
		ID:         res.RunID,
		Kind:       string(res.Kind),
		ShowID:     res.Scope.ShowID,
		SeasonID:   res.Scope.SeasonID,
		Target:     res.Target,
		State:      res.State.String(),
		Changed:    len(res.Changes),
		StartedAt:  startedAt,
		FinishedAt: j.nowFunc(),
	}

	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := j.cfg.Journal.RecordRun(ctx, run); err != nil {
		j.logger.Warn("recording job run failed", slog.String("error", err.Error()))
	}
}

func changesOf(eps []episode.Episode, target episode.Flag) []episode.Change {
	changes := make([]episode.Change, 0, len(eps))
	for _, e := range eps {
		changes = append(changes, episode.Change{EpisodeID: e.ID, Number: e.Number, Flag: target, Previous: e.Flag})
	}

	return changes
}
