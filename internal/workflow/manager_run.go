package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
)

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if m.waitOutPause(ctx) {
			return
		}

		if err := m.heartbeat.ReclaimStale(ctx, m.logger); err != nil && !errors.Is(err, context.Canceled) {
			logging.WarnWithContext(m.logger, "reclaim stale transcribing failed; stuck items may remain", "heartbeat_reclaim_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"))
		}

		item, err := m.store.NextPending(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleNextItemError(ctx, err)
			continue
		}
		if item == nil {
			m.waitForItemOrShutdown(ctx)
			continue
		}

		if err := m.processItem(ctx, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// waitOutPause blocks while a critical pause is in effect. It returns
// true when the context was cancelled during the wait.
func (m *Manager) waitOutPause(ctx context.Context) bool {
	m.mu.RLock()
	until := m.pausedUntil
	reason := m.pauseReason
	m.mu.RUnlock()

	remaining := time.Until(until)
	if remaining <= 0 {
		return false
	}
	m.logger.Warn("queue paused after critical failure",
		logging.String("reason", reason),
		logging.Duration("resume_in", remaining),
		logging.String(logging.FieldEventType, "queue_paused"))
	select {
	case <-ctx.Done():
		return true
	case <-time.After(remaining):
	}
	m.mu.Lock()
	m.pausedUntil = time.Time{}
	m.pauseReason = ""
	m.mu.Unlock()
	m.logger.Info("resuming queue processing after pause")
	return false
}

func (m *Manager) pauseQueue(reason string) {
	pause := time.Duration(m.cfg.Transcriber.CriticalPauseSeconds) * time.Second
	m.mu.Lock()
	m.pausedUntil = time.Now().Add(pause)
	m.pauseReason = reason
	m.mu.Unlock()
}

func (m *Manager) handleNextItemError(ctx context.Context, err error) {
	m.setLastError(err)
	logging.ErrorWithContext(m.logger, "failed to fetch next queue item", "queue_fetch_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check queue database access"))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	requestID := uuid.NewString()
	itemCtx := services.WithRequestID(ctx, requestID)
	itemCtx = services.WithItemID(itemCtx, item.ID)
	itemCtx = services.WithStage(itemCtx, "transcriber")
	logger := logging.WithContext(itemCtx, m.logger)

	if err := m.transitionToProcessing(itemCtx, item); err != nil {
		logger.Error("failed to transition item to transcribing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	stageStart := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source_file", strings.TrimSpace(item.SourcePath)))

	if err := m.handler.Prepare(itemCtx, item); err != nil {
		m.handleFailure(itemCtx, item, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(itemCtx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		logger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(itemCtx, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			logger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleFailure(itemCtx, item, execErr)
		m.setLastError(execErr)
		return execErr
	}

	item.Status = queue.StatusCompleted
	item.LastHeartbeat = nil
	if err := m.store.Update(itemCtx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		logger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("transcript", strings.TrimSpace(item.TranscriptPath)),
		logging.Duration("stage_duration", time.Since(stageStart)))
	m.setLastItem(item)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := m.handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, item *queue.Item) error {
	now := time.Now().UTC()
	item.Status = queue.StatusTranscribing
	item.SetProgress("Transcribing", "Transcription started")
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastItem(item)
	return nil
}
