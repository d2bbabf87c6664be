package workflow

import (
	"context"
	"time"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Paused      bool
	PausedUntil time.Time
	PauseReason string
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	pausedUntil := m.pausedUntil
	pauseReason := m.pauseReason
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:    running,
		QueueStats: stats,
	}
	if time.Now().Before(pausedUntil) {
		summary.Paused = true
		summary.PausedUntil = pausedUntil
		summary.PauseReason = pauseReason
	}
	if m.handler != nil {
		summary.StageHealth = m.handler.HealthCheck(ctx)
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		copied := *lastItem
		summary.LastItem = &copied
	}
	return summary
}
