// Package supervisor runs one task per pipeline run and joins them on shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrShutdownTimeout is returned when tasks don't stop within timeout.
	ErrShutdownTimeout = errors.New("supervisor shutdown timed out")

	// ErrStopped is returned when a task is submitted after Stop.
	ErrStopped = errors.New("supervisor stopped")
)

// Task is one unit of supervised work. It should return when ctx is done.
type Task = func(ctx context.Context) error

// Config holds supervisor configuration.
type Config struct {
	// MaxConcurrent bounds the number of tasks running at once. Zero means
	// unbounded, in which case Go never blocks.
	MaxConcurrent int
}

// Supervisor starts tasks independently. A failing task is logged and does
// not cancel its siblings.
type Supervisor struct {
	group  errgroup.Group
	logger *slog.Logger

	mu      sync.RWMutex
	stopped bool
	active  atomic.Int64
	failed  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new supervisor.
func New(cfg Config, logger *slog.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Supervisor{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.MaxConcurrent > 0 {
		s.group.SetLimit(cfg.MaxConcurrent)
	}
	return s
}

// Go starts task under name. When a concurrency limit is set it blocks until
// a slot frees up.
func (s *Supervisor) Go(name string, task Task) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return ErrStopped
	}

	s.group.Go(func() error {
		s.active.Add(1)
		defer s.active.Add(-1)

		if err := s.run(name, task); err != nil {
			s.failed.Add(1)
			s.logger.Error("task failed", "task", name, "error", err)
		}
		return nil
	})
	return nil
}

func (s *Supervisor) run(name string, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("task panicked",
				"task", name,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return task(s.ctx)
}

// Active returns the number of tasks currently running.
func (s *Supervisor) Active() int {
	return int(s.active.Load())
}

// Failed returns the number of tasks that returned an error or panicked.
func (s *Supervisor) Failed() int {
	return int(s.failed.Load())
}

// Stop cancels all running tasks and waits up to timeout for them to return.
func (s *Supervisor) Stop(timeout time.Duration) error {
	s.logger.Info("stopping supervisor", "active", s.Active())
	s.cancel()

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("supervisor stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
