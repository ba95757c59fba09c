package propagate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/message"

	"github.com/tonimelisma/episodesync/internal/episode"
)

// QueueConfig holds the collaborators shared by every job a Queue runs.
type QueueConfig struct {
	Catalog      Catalog
	Journal      Journal
	Notifier     Notifier
	Printer      *message.Printer
	NumberFormat episode.NumberFormat
	Dispatcher   *Dispatcher // nil: local only
	Logger       *slog.Logger
}

// Request asks for one season action.
type Request struct {
	Kind   Kind
	Scope  episode.SeasonScope
	Target episode.Flag
	Now    time.Time
}

// Queue runs jobs with at most one in-flight job per season scope. Jobs for
// different scopes run in parallel.
type Queue struct {
	cfg    QueueConfig
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*scopeLock
}

type scopeLock struct {
	mu   sync.Mutex
	refs int
}

// NewQueue creates a queue.
func NewQueue(cfg QueueConfig) *Queue {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Queue{
		cfg:    cfg,
		logger: logger,
		locks:  make(map[string]*scopeLock),
	}
}

// Submit runs req to completion and dispatches its payloads. A local
// failure returns an aborted Result and an error wrapping ErrStorage. A
// remote failure returns the Done Result and an error wrapping
// ErrRemoteUnavailable.
//
// Dispatch happens under the scope lock so a later job's remote events never
// overtake an earlier one's.
func (q *Queue) Submit(ctx context.Context, req Request) (*Result, error) {
	job, err := NewJob(JobConfig{
		Kind:         req.Kind,
		Scope:        req.Scope,
		Target:       req.Target,
		Now:          req.Now,
		Catalog:      q.cfg.Catalog,
		Journal:      q.cfg.Journal,
		Notifier:     q.cfg.Notifier,
		Printer:      q.cfg.Printer,
		NumberFormat: q.cfg.NumberFormat,
		Logger:       q.logger,
	})
	if err != nil {
		return nil, err
	}

	unlock, err := q.acquire(ctx, req.Scope.Key())
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := job.Run(ctx)
	if err != nil {
		return res, err
	}

	if err := q.cfg.Dispatcher.Dispatch(ctx, res); err != nil {
		return res, err
	}

	return res, nil
}

// acquire takes the lock of key, giving up if ctx is done first.
func (q *Queue) acquire(ctx context.Context, key string) (func(), error) {
	q.mu.Lock()
	l, ok := q.locks[key]
	if !ok {
		l = &scopeLock{}
		q.locks[key] = l
	}
	l.refs++
	q.mu.Unlock()

	release := func() {
		q.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(q.locks, key)
		}
		q.mu.Unlock()
	}

	locked := make(chan struct{})

	go func() {
		l.mu.Lock()
		close(locked)
	}()

	select {
	case <-locked:
		return func() {
			l.mu.Unlock()
			release()
		}, nil
	case <-ctx.Done():
		// The goroutine still takes the lock eventually; hand it back.
		go func() {
			<-locked
			l.mu.Unlock()
			release()
		}()

		return nil, ctx.Err()
	}
}

// inFlight returns the number of scopes with a held or awaited lock.
func (q *Queue) inFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.locks)
}
