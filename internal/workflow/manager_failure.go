package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
)

// handleFailure resolves a stage error into a queue state. Critical
// failures pause the whole queue and put the item back in pending so it
// runs again once the environment recovers. Everything else marks the
// item failed and moves the audio file out of the watch directory.
func (m *Manager) handleFailure(ctx context.Context, item *queue.Item, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)
	message := failureMessage(stageErr)

	if services.IsCritical(stageErr) {
		m.pauseQueue(message)
		item.Status = queue.StatusPending
		item.ErrorMessage = message
		item.LastHeartbeat = nil
		item.SetProgress("Paused", "Waiting for environment to recover")
		logging.ErrorWithContext(logger, "critical failure, pausing queue", "critical_failure",
			logging.String("error_message", message),
			logging.Error(stageErr),
			logging.String(logging.FieldErrorHint, "free disk space or memory; processing resumes automatically"))
		m.persistFailureState(ctx, logger, item)
		return
	}

	item.SetFailed(message)
	item.LastHeartbeat = nil
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String("error_message", message),
		logging.Error(stageErr),
		logging.String(logging.FieldErrorHint, "inspect the failed directory and re-queue with the retry command"))

	if m.archiver != nil {
		archived, err := m.archiver.FailAudio(ctx, item.SourcePath)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("failed to move audio to failed directory", logging.Error(err))
			}
		} else {
			item.ArchivedPath = archived
		}
	}
	m.persistFailureState(ctx, logger, item)
}

func (m *Manager) persistFailureState(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist failure state")
		} else {
			logger.Error("failed to persist failure state", logging.Error(err))
		}
	}
	m.setLastItem(item)
}

func failureMessage(stageErr error) string {
	if stageErr == nil {
		return "transcription failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		return "transcription failed"
	}
	return message
}
