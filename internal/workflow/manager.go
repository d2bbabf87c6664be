package workflow

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
	"scribe/internal/stage"
)

// Manager coordinates queue processing with a single transcription
// stage. Items are processed strictly one at a time in queue order.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	handler      stage.Handler
	archiver     *archive.Archiver
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastErr     error
	lastItem    *queue.Item
	pausedUntil time.Time
	pauseReason string
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, handler stage.Handler) *Manager {
	return NewManagerWithArchiver(cfg, store, logger, handler, archive.New(cfg, logger))
}

// NewManagerWithArchiver allows injecting the archiver (used in tests).
func NewManagerWithArchiver(cfg *config.Config, store *queue.Store, logger *slog.Logger, handler stage.Handler, archiver *archive.Archiver) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger.With(logging.String(logging.FieldComponent, "workflow-manager")),
		handler:      handler,
		archiver:     archiver,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// Start begins background processing. Items left in the transcribing
// state by an unclean shutdown are reset before the loop begins.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.handler == nil {
		m.mu.Unlock()
		return errors.New("workflow stage not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckTranscribing(runCtx); err != nil {
		m.logger.Warn("failed to reset interrupted items", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("reset interrupted items to pending", logging.Int64("count", reset))
	}

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the processing loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		copied := *item
		m.lastItem = &copied
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
