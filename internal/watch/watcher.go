// Package watch observes the inbox directory for new audio files.
//
// The Watcher combines fsnotify events with a periodic sweep so files are
// noticed even when events are dropped or the daemon starts with a backlog
// already on disk. Candidates are handed to a caller-provided handler; the
// watcher itself never blocks on downstream work.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"

	"scribe/internal/config"
	"scribe/internal/logging"
)

// Handler receives the absolute path of a candidate audio file. Handlers must
// not block; long-running work belongs on the handler's own goroutines.
type Handler func(ctx context.Context, path string)

// Watcher monitors the watch directory for new audio files.
type Watcher struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler Handler

	scanInterval time.Duration

	mu        sync.Mutex
	running   bool
	fs        *fsnotify.Watcher
	healthErr error
	lastSweep time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a watcher. The handler is invoked for every candidate file
// observed via filesystem events or sweeps.
func New(cfg *config.Config, logger *slog.Logger, handler Handler) *Watcher {
	return &Watcher{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "watcher"),
		handler:      handler,
		scanInterval: time.Duration(cfg.Workflow.ScanInterval) * time.Second,
	}
}

// Start begins watching. The initial sweep runs before the first event so a
// backlog present at startup is picked up immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("watcher already running")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fs.Add(w.cfg.Paths.WatchDir); err != nil {
		_ = fs.Close()
		return fmt.Errorf("watch %s: %w", w.cfg.Paths.WatchDir, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.ctx = runCtx
	w.cancel = cancel
	w.fs = fs
	w.running = true
	w.healthErr = nil

	w.wg.Add(1)
	go w.loop(fs)

	w.logger.Info("watching for audio files",
		logging.String("dir", w.cfg.Paths.WatchDir),
		logging.Duration("sweep_interval", w.scanInterval),
		logging.String(logging.FieldEventType, "watcher_started"),
	)
	return nil
}

// Stop halts watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	fs := w.fs
	w.running = false
	w.cancel = nil
	w.fs = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if fs != nil {
		_ = fs.Close()
	}
	w.wg.Wait()
}

// Restart tears the watcher down and brings it back up with a fresh fsnotify
// instance. Used by the health monitor after a watch failure.
func (w *Watcher) Restart(ctx context.Context) error {
	w.Stop()
	return w.Start(ctx)
}

// Healthy reports nil while the watcher is running and the watch directory
// remains readable.
func (w *Watcher) Healthy() error {
	w.mu.Lock()
	running := w.running
	healthErr := w.healthErr
	w.mu.Unlock()

	if !running {
		return errors.New("watcher not running")
	}
	if healthErr != nil {
		return healthErr
	}
	if err := unix.Access(w.cfg.Paths.WatchDir, unix.R_OK|unix.X_OK); err != nil {
		return fmt.Errorf("watch directory inaccessible: %w", err)
	}
	return nil
}

// LastSweep returns the time of the most recent directory sweep.
func (w *Watcher) LastSweep() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSweep
}

func (w *Watcher) loop(fs *fsnotify.Watcher) {
	defer w.wg.Done()

	w.sweep()

	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.sweep()
		case event, ok := <-fs.Events:
			if !ok {
				w.markUnhealthy(errors.New("event channel closed"))
				return
			}
			w.handleEvent(event)
		case err, ok := <-fs.Errors:
			if !ok {
				w.markUnhealthy(errors.New("error channel closed"))
				return
			}
			logging.WarnWithContext(w.logger, "watch event error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "watcher restarts automatically if this persists"),
			)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if !w.cfg.WatchesExtension(event.Name) {
		return
	}
	w.logger.Debug("audio file event",
		logging.String("path", event.Name),
		logging.String("op", event.Op.String()),
	)
	w.dispatch(event.Name)
}

// sweep walks the watch directory so files missed by events still enter the
// pipeline.
func (w *Watcher) sweep() {
	dir := w.cfg.Paths.WatchDir
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.markUnhealthy(fmt.Errorf("sweep %s: %w", dir, err))
		logging.WarnWithContext(w.logger, "watch directory sweep failed", "sweep_failed",
			logging.String("dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the watch directory exists and is readable"),
		)
		return
	}

	w.mu.Lock()
	w.lastSweep = time.Now()
	w.healthErr = nil
	w.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !w.cfg.WatchesExtension(name) {
			continue
		}
		w.dispatch(filepath.Join(dir, name))
	}
}

func (w *Watcher) dispatch(path string) {
	handler := w.handler
	if handler == nil {
		return
	}
	ctx := w.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}
	handler(ctx, path)
}

func (w *Watcher) markUnhealthy(err error) {
	w.mu.Lock()
	w.healthErr = err
	w.mu.Unlock()
}
