// Package ingest admits discovered audio files into the work queue.
// Candidates from the watcher are held until the readiness checker
// confirms they are fully written, then enqueued exactly once. Files
// that never settle are moved to the failed directory unprocessed.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/archive"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/readiness"
	"scribe/internal/services"
)

// Ingestor serializes admission of candidate files. Each candidate is
// settled and enqueued on its own goroutine; a path is tracked while in
// flight so repeated watcher events for the same file collapse into one
// admission attempt.
type Ingestor struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	checker  *readiness.Checker
	archiver *archive.Archiver

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

func New(cfg *config.Config, logger *slog.Logger, store *queue.Store, checker *readiness.Checker) *Ingestor {
	return &Ingestor{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "ingest"),
		store:    store,
		checker:  checker,
		archiver: archive.New(cfg, logger),
		inFlight: make(map[string]struct{}),
	}
}

// Admit begins admission of path. It returns immediately; settling and
// enqueueing happen in the background. Duplicate calls for a path that
// is already in flight are ignored.
func (ing *Ingestor) Admit(ctx context.Context, path string) {
	if path == "" {
		return
	}
	ing.mu.Lock()
	if _, busy := ing.inFlight[path]; busy {
		ing.mu.Unlock()
		return
	}
	ing.inFlight[path] = struct{}{}
	ing.mu.Unlock()

	ing.wg.Add(1)
	go func() {
		defer ing.wg.Done()
		defer ing.release(path)
		ing.admit(ctx, path)
	}()
}

// Wait blocks until all in-flight admissions have finished. Callers
// cancel the context passed to Admit before waiting during shutdown.
func (ing *Ingestor) Wait() {
	ing.wg.Wait()
}

// InFlight reports the number of paths currently being settled.
func (ing *Ingestor) InFlight() int {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return len(ing.inFlight)
}

func (ing *Ingestor) release(path string) {
	ing.mu.Lock()
	delete(ing.inFlight, path)
	ing.mu.Unlock()
}

func (ing *Ingestor) admit(ctx context.Context, path string) {
	started := time.Now()
	size, err := ing.checker.WaitUntilReady(ctx, path)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, readiness.ErrNeverSettled):
			ing.failUnsettled(ctx, path, time.Since(started))
		case errors.Is(err, services.ErrNotFound):
			ing.logger.Debug("candidate disappeared before settling", logging.String("path", path))
		default:
			logging.WarnWithContext(ing.logger, "readiness check failed", "ingest_error",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify the watch directory is accessible"))
		}
		return
	}

	dedupWindow := time.Duration(ing.cfg.Workflow.DedupWindowSeconds) * time.Second
	item, created, err := ing.store.Enqueue(ctx, path, size, dedupWindow)
	if err != nil {
		logging.ErrorWithContext(ing.logger, "failed to enqueue file", "ingest_error",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database health"))
		return
	}
	if !created {
		ing.logger.Debug("file already queued, skipping",
			logging.String("path", path), logging.Int64(logging.FieldItemID, item.ID))
		return
	}
	ing.logger.Info("queued file for transcription",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("file", item.FileName),
		logging.Int64("size_bytes", size),
		logging.Duration("settle_time", time.Since(started)))
}

// failUnsettled routes a file that never settled into the failed directory
// so it is never enqueued or transcribed.
func (ing *Ingestor) failUnsettled(ctx context.Context, path string, waited time.Duration) {
	target, err := ing.archiver.FailAudio(ctx, path)
	if err != nil {
		logging.WarnWithContext(ing.logger, "file never settled and could not be moved to failed", "ingest_unsettled",
			logging.String("path", path),
			logging.Duration("waited", waited),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "file may still be held open by a writer; it will be retried on the next sweep"))
		return
	}
	logging.WarnWithContext(ing.logger, "file never settled, moved to failed", "ingest_unsettled",
		logging.String("path", path),
		logging.String("failed_path", target),
		logging.Duration("waited", waited),
		logging.String(logging.FieldErrorHint, "the writer never released the file within the readiness window"))
}
