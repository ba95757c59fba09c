package notify

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Stamp rewrites a small file with the current time after every signal.
// Writes happen on a background goroutine; signals that arrive while a
// write is pending are coalesced into it.
type Stamp struct {
	path    string
	logger  *slog.Logger
	nowFunc func() time.Time

	mu     sync.Mutex
	closed bool
	kick   chan struct{}
	done   chan struct{}
}

// NewStamp starts a stamp writer for path. Call Close to flush and stop it.
func NewStamp(path string, logger *slog.Logger) *Stamp {
	return newStamp(path, logger, time.Now)
}

func newStamp(path string, logger *slog.Logger, nowFunc func() time.Time) *Stamp {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Stamp{
		path:    path,
		logger:  logger,
		nowFunc: nowFunc,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	go s.loop()

	return s
}

// Path returns the stamp file path.
func (s *Stamp) Path() string {
	return s.path
}

// Notify schedules a stamp write without waiting for it.
func (s *Stamp) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Close waits for a pending write and stops the writer.
func (s *Stamp) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.kick)
	}
	s.mu.Unlock()

	<-s.done
}

func (s *Stamp) loop() {
	defer close(s.done)

	for range s.kick {
		if err := s.write(); err != nil {
			s.logger.Warn("writing refresh stamp failed",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
	}
}

// write replaces the stamp atomically so a watcher never reads a partial
// file.
func (s *Stamp) write() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("notify: creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".stamp-*.tmp")
	if err != nil {
		return fmt.Errorf("notify: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(s.nowFunc().UTC().Format(time.RFC3339Nano) + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("notify: writing stamp: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("notify: closing stamp: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("notify: renaming stamp: %w", err)
	}

	s.logger.Debug("refresh stamp written", slog.String("path", s.path))

	return nil
}

// ReadStamp returns the time stored in a stamp file.
func ReadStamp(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("notify: reading stamp: %w", err)
	}

	if n := len(data); n > 0 && data[n-1] == '\n' {
		data = data[:n-1]
	}

	t, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return time.Time{}, fmt.Errorf("notify: parsing stamp: %w", err)
	}

	return t, nil
}
