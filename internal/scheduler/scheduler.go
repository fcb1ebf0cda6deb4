// Package scheduler drives periodic sync passes with an adaptive cadence:
// a steady base interval, a short fast-path delay when a change notifier
// reports activity, and an exponential backoff ladder while passes fail.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Action is one sync pass. A non-nil error counts as a failure and moves
// the scheduler onto the backoff ladder.
type Action func(ctx context.Context) error

// Config holds the scheduler's cadence.
type Config struct {
	// Base is the steady-state interval between passes.
	Base time.Duration

	// FastPath is the delay used instead of Base after TriggerFastSync,
	// batching rapid change notifications into one pass.
	FastPath time.Duration

	// Backoff is the ladder of delays while passes fail: the k-th
	// consecutive failure waits Backoff[min(k-1, len-1)].
	Backoff []time.Duration

	// Logger for scheduling activity. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Base:     30 * time.Second,
		FastPath: 500 * time.Millisecond,
		Backoff: []time.Duration{
			5 * time.Second,
			15 * time.Second,
			time.Minute,
			5 * time.Minute,
		},
	}
}

// Scheduler runs an Action on an adaptive timer. There is at most one
// pending wake-up at any time; each pass re-arms the timer from its own
// completion, so passes never overlap.
type Scheduler struct {
	config *Config
	action Action
	log    *slog.Logger

	mu       sync.Mutex
	running  bool
	fast     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	failures int
}

// New creates a scheduler for action.
func New(action Action, config *Config) (*Scheduler, error) {
	if action == nil {
		return nil, fmt.Errorf("action cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Base <= 0 {
		return nil, fmt.Errorf("base interval must be positive")
	}
	if config.FastPath <= 0 {
		return nil, fmt.Errorf("fast-path delay must be positive")
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		config: config,
		action: action,
		log:    log,
	}, nil
}

// Start begins scheduling. The first pass runs after the base interval;
// call TriggerFastSync to pull it forward. Returns an error if already
// running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.fast = make(chan struct{}, 1)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.failures = 0

	go s.loop(ctx)
	return nil
}

// Stop cancels the pending wake-up and waits for any in-flight pass to
// finish. Safe to call when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// TriggerFastSync requests a pass after the fast-path delay instead of
// waiting out the current interval. Coalesces with an already-pending
// fast sync; no-op when the scheduler is not running.
func (s *Scheduler) TriggerFastSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	select {
	case s.fast <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(s.config.Base)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.fast:
			resetTimer(timer, s.config.FastPath)

		case <-timer.C:
			s.runOnce(ctx)
			resetTimer(timer, s.nextDelay())
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.action(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		s.failures++
		failures := s.failures
		s.mu.Unlock()
		s.log.Warn("sync pass failed", "failures", failures, "error", err)
		return
	}

	s.mu.Lock()
	if s.failures > 0 {
		s.log.Info("sync pass recovered", "after_failures", s.failures)
	}
	s.failures = 0
	s.mu.Unlock()
}

// nextDelay picks the interval until the next pass: the base interval
// while healthy, the backoff ladder while failing.
func (s *Scheduler) nextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == 0 || len(s.config.Backoff) == 0 {
		return s.config.Base
	}
	k := s.failures - 1
	if k >= len(s.config.Backoff) {
		k = len(s.config.Backoff) - 1
	}
	return s.config.Backoff[k]
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
