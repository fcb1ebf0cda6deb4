package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tasknest/tasknest/internal/engine"
	"github.com/tasknest/tasknest/internal/index"
	"github.com/tasknest/tasknest/internal/scheduler"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/watch"
)

// staleAfterFailures is how many consecutive failed passes the daemon
// tolerates before it starts labelling its last good summary as stale.
const staleAfterFailures = 3

var daemonPoll bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch the vault and sync continuously",
	Long: `Run the sync loop: watch the vault for changes, pull the next pass
forward when an edit lands, fall back to exponential backoff while passes
fail, and keep the local index reconciled throughout.`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger, cleanup, err := daemonLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	v, err := openVault(logger)
	if err != nil {
		return err
	}

	db, err := index.Open(v.config.ResolveIndexPath(v.root))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.InitSchema(cmd.Context()); err != nil {
		return err
	}

	eng := v.newEngine(logger)

	// Pass state lives for the daemon's lifetime; the scheduler
	// serializes passes, so no locking around it is needed. The summary
	// mutex only guards the status snapshot read by the logger.
	state := engine.NewState()
	var mu sync.Mutex
	var lastGood *engine.Summary
	var lastGoodAt time.Time
	var failures int

	action := func(ctx context.Context) error {
		summary, events, next, err := eng.Run(ctx, state)
		if err != nil {
			mu.Lock()
			failures++
			if failures >= staleAfterFailures && lastGood != nil {
				logger.Warn("sync stale",
					"consecutive_failures", failures,
					"last_good_pass", lastGood.PassID,
					"stale_for", time.Since(lastGoodAt).Round(time.Second))
			}
			mu.Unlock()
			return err
		}
		state = next

		if err := db.Apply(ctx, events); err != nil {
			// The mirror is never authoritative; a full rebuild next
			// pass recovers it.
			logger.Warn("index apply failed, rebuilding", "error", err)
			if err := db.Rebuild(ctx, next.Records()); err != nil {
				return fmt.Errorf("index rebuild: %w", err)
			}
		}

		mu.Lock()
		failures = 0
		lastGood = summary
		lastGoodAt = time.Now()
		mu.Unlock()
		return nil
	}

	schedCfg := &scheduler.Config{
		Base:     v.config.BaseInterval,
		FastPath: v.config.FastPathDelay,
		Backoff:  v.config.Backoff,
		Logger:   logger,
	}
	sched, err := scheduler.New(action, schedCfg)
	if err != nil {
		return err
	}

	notifier, err := openNotifier(v, logger)
	if err != nil {
		return err
	}
	defer notifier.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	// Batch rapid watcher notifications into one fast sync.
	debouncer := watch.NewDebouncer(v.config.DebounceInterval, sched.TriggerFastSync)
	defer debouncer.CancelAndWait()

	// Converge promptly on startup instead of waiting out the base
	// interval.
	sched.TriggerFastSync()
	logger.Info("daemon started", "vault", v.root, "base_interval", v.config.BaseInterval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping")
			return nil
		case _, ok := <-notifier.Events():
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			debouncer.Trigger()
		}
	}
}

// openNotifier prefers fsnotify and falls back to polling when the
// platform watcher cannot be established (or --poll forces it).
func openNotifier(v *vault, logger *slog.Logger) (watch.Notifier, error) {
	if !daemonPoll {
		n, err := watch.NewFSNotifier(v.root, task.Extension, logger)
		if err == nil {
			return n, nil
		}
		logger.Warn("fsnotify unavailable, falling back to polling", "error", err)
	}
	return watch.NewPollNotifier(v.root, task.Extension, v.config.BaseInterval/3), nil
}

// daemonLogger builds the daemon's slog handler, writing through a
// rotating file when config names one.
func daemonLogger() (*slog.Logger, func(), error) {
	v, err := openVault(nil)
	if err != nil {
		return nil, nil, err
	}
	if v.config.LogFile == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), func() {}, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   v.resolveTaskPath(v.config.LogFile),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	logger := slog.New(slog.NewTextHandler(rotator, nil))
	return logger, func() { rotator.Close() }, nil
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonPoll, "poll", false, "use polling instead of fsnotify")
	rootCmd.AddCommand(daemonCmd)
}
