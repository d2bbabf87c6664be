package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/health"
	"scribe/internal/ingest"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/readiness"
	"scribe/internal/stage"
	"scribe/internal/transcribe"
	"scribe/internal/watch"
	"scribe/internal/workflow"
)

// Daemon coordinates the background services and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	workflow   *workflow.Manager
	watcher    *watch.Watcher
	ingestor   *ingest.Ingestor
	supervisor *health.Supervisor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	Degraded     map[string]string
	QueueDBPath  string
	LockFilePath string
}

// Option adjusts daemon construction.
type Option func(*options)

type options struct {
	handler stage.Handler
}

// WithStageHandler overrides the transcription stage handler (used in tests).
func WithStageHandler(h stage.Handler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	handler := o.handler
	if handler == nil {
		handler = transcribe.NewTranscriber(cfg, store, logger)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: workflow.NewManager(cfg, store, logger, handler),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	checker := readiness.New(cfg, logger)
	d.ingestor = ingest.New(cfg, logger, store, checker)
	d.watcher = watch.New(cfg, logger, func(ctx context.Context, path string) {
		d.ingestor.Admit(ctx, path)
	})

	d.supervisor = health.NewSupervisor(cfg, logger)
	d.supervisor.Register(watcherComponent{d.watcher})
	d.supervisor.Register(workflowComponent{d.workflow})
	return d, nil
}

// Start verifies the watch directory, acquires the daemon lock, and
// brings the services up in order: queue processing first so the backlog
// starts draining, then the watcher, then the health supervisor. A
// missing watch directory aborts startup.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.RequireWatchDir(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.watcher.Start(d.ctx); err != nil {
		d.workflow.Stop()
		d.abortStart()
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := d.supervisor.Start(d.ctx); err != nil {
		d.watcher.Stop()
		d.workflow.Stop()
		d.abortStart()
		return fmt.Errorf("start health supervisor: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("scribe daemon started",
		logging.String("watch_dir", d.cfg.Paths.WatchDir),
		logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop shuts services down in reverse order: the supervisor first so it
// does not fight the shutdown, then intake, then processing. In-flight
// admissions are waited out before the queue loop stops.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.supervisor.Stop()
	d.watcher.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ingestor.Wait()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("scribe daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		Degraded:     d.supervisor.Degraded(),
		QueueDBPath:  d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}

// LogPath returns the path of today's daily log file.
func (d *Daemon) LogPath() string {
	return filepath.Join(d.cfg.Paths.LogDir, logging.DailyFileName(time.Now()))
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetQueueItem returns a single queue item by id.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	return d.store.GetByID(ctx, id)
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// ResetStuck transitions in-flight items back to pending for retry.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	return d.store.ResetStuckTranscribing(ctx)
}

// RetryFailed resets failed items (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// AddFile enqueues a file manually, bypassing the watcher. The file
// must exist and carry a configured audio extension.
func (d *Daemon) AddFile(ctx context.Context, sourcePath string) (*queue.Item, error) {
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, errors.New("source path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source path %q is a directory", absPath)
	}
	if !d.cfg.WatchesExtension(info.Name()) {
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(info.Name()))
	}
	dedupWindow := time.Duration(d.cfg.Workflow.DedupWindowSeconds) * time.Second
	item, created, err := d.store.Enqueue(ctx, absPath, info.Size(), dedupWindow)
	if err != nil {
		return nil, fmt.Errorf("enqueue manual file: %w", err)
	}
	if !created {
		return item, fmt.Errorf("file %s is already queued as item %d", absPath, item.ID)
	}
	d.logger.Info("manual file queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("source", absPath))
	return item, nil
}
