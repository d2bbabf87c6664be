// Package readiness decides when a newly observed audio file is safe to
// enqueue.
//
// A file dropped into the watch directory may still be uploading or being
// written by a recorder. The Checker waits an initial settle delay, then
// probes until two consecutive observations agree on a non-zero size and
// modification time and an exclusive lock can be taken, backing off between
// probes. Files that never settle within the configured window are skipped.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/services"
)

// ErrNeverSettled reports a file that kept changing for the whole wait window.
var ErrNeverSettled = errors.New("file never settled")

// Checker probes files for stability before they are enqueued.
type Checker struct {
	logger       *slog.Logger
	initialDelay time.Duration
	pollInterval time.Duration
	pollCap      time.Duration
	maxWait      time.Duration
}

// New constructs a Checker from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Checker {
	return &Checker{
		logger:       logging.NewComponentLogger(logger, "readiness"),
		initialDelay: time.Duration(cfg.Readiness.InitialDelaySeconds) * time.Second,
		pollInterval: time.Duration(cfg.Readiness.PollIntervalSeconds) * time.Second,
		pollCap:      time.Duration(cfg.Readiness.PollBackoffCapSeconds) * time.Second,
		maxWait:      time.Duration(cfg.Readiness.MaxWaitSeconds) * time.Second,
	}
}

// WaitUntilReady blocks until the file stops changing and can be locked
// exclusively, returning its final size. It returns ErrNeverSettled (wrapped)
// when the file is still changing after the maximum wait, a not-found error
// when the file disappears, and the context error on shutdown.
func (c *Checker) WaitUntilReady(ctx context.Context, path string) (int64, error) {
	logger := logging.WithContext(ctx, c.logger)

	if c.initialDelay > 0 {
		if err := sleepCtx(ctx, c.initialDelay); err != nil {
			return 0, err
		}
	}

	deadline := time.Now().Add(c.maxWait)
	interval := c.pollInterval
	var (
		prevSize int64 = -1
		prevMod  time.Time
	)

	for {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return 0, services.Wrap(services.ErrNotFound, "readiness", "stat", "file disappeared before it settled", err)
			}
			return 0, services.Wrap(services.ErrTransient, "readiness", "stat", "unable to stat watched file", err)
		}

		stable := info.Size() > 0 && info.Size() == prevSize && info.ModTime().Equal(prevMod)
		if stable && c.tryLock(path) {
			logger.Debug("file settled",
				logging.String("path", path),
				logging.Int64("size", info.Size()),
			)
			return info.Size(), nil
		}
		prevSize = info.Size()
		prevMod = info.ModTime()

		if time.Now().After(deadline) {
			return 0, fmt.Errorf("%w: %s after %s", ErrNeverSettled, path, c.maxWait)
		}

		logger.Debug("file not settled yet",
			logging.String("path", path),
			logging.Int64("size", info.Size()),
			logging.Duration("next_probe", interval),
		)
		if err := sleepCtx(ctx, interval); err != nil {
			return 0, err
		}
		interval *= 2
		if interval > c.pollCap {
			interval = c.pollCap
		}
	}
}

// tryLock attempts a non-blocking exclusive lock on the file. A writer that
// still holds the file open with a lock keeps the probe waiting.
func (c *Checker) tryLock(path string) bool {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if !ok {
		return false
	}
	_ = lock.Unlock()
	return true
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
