package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/archive"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/stage"
)

const stageName = "transcriber"

// Transcriber manages the speech-to-text workflow for a single item.
type Transcriber struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	client   whisper.Transcriber
	archiver *archive.Archiver
}

// NewTranscriber constructs the transcription handler using default
// dependencies.
func NewTranscriber(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcriber {
	client, err := whisper.New(cfg.Transcriber)
	if err != nil {
		logger.Warn("transcriber client unavailable", logging.Error(err))
	}
	return NewTranscriberWithDependencies(cfg, store, logger, client, archive.New(cfg, logger))
}

// NewTranscriberWithDependencies allows injecting all collaborators (used in tests).
func NewTranscriberWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client whisper.Transcriber, archiver *archive.Archiver) *Transcriber {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, stageName))
	}
	return &Transcriber{cfg: cfg, store: store, logger: stageLogger, client: client, archiver: archiver}
}

func (t *Transcriber) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)

	if _, err := os.Stat(item.SourcePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrPermanent, stageName, "prepare",
				fmt.Sprintf("source file %s disappeared before transcription", item.SourcePath), nil)
		}
		return services.Wrap(services.ErrTransient, stageName, "prepare", "stat source file", err)
	}
	if err := checkFreeSpace(t.cfg.Paths.TranscriptDir, t.cfg.Transcriber.MinFreeSpaceMB); err != nil {
		return err
	}

	item.SetProgress("Transcribing", "Starting transcription")
	item.ErrorMessage = ""
	logger.Info("starting transcription",
		logging.String("file", item.FileName),
		logging.Int64("size_bytes", item.FileSize))
	return nil
}

func (t *Transcriber) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	if t.client == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "execute",
			"transcriber client unavailable; check the transcriber binary setting", nil)
	}

	outputDir, err := os.MkdirTemp(t.cfg.Paths.WorkDir, "transcribe-*")
	if err != nil {
		return services.Wrap(services.ErrCritical, stageName, "execute", "create working directory", err)
	}
	defer os.RemoveAll(outputDir)

	result, err := t.runWithRetries(ctx, item, outputDir)
	if err != nil {
		return err
	}

	transcriptPath, err := t.archiver.PlaceTranscript(ctx, result.TranscriptPath, item.FileName)
	if err != nil {
		return err
	}
	archivedPath, err := t.archiver.CompleteAudio(ctx, item.SourcePath)
	if err != nil {
		// The transcript has already landed; leaving it in place is
		// better than failing the item over the audio move alone.
		logger.Warn("transcript saved but audio move failed",
			logging.String("transcript", transcriptPath), logging.Error(err))
		return err
	}

	item.TranscriptPath = transcriptPath
	item.ArchivedPath = archivedPath
	item.SetProgress("Completed", "Transcription complete")
	logger.Info("transcription completed",
		logging.String("file", item.FileName),
		logging.String("transcript", transcriptPath),
		logging.Duration("tool_time", result.Elapsed),
		logging.Int("attempts", item.Attempts+1))
	return nil
}

// runWithRetries executes the tool, retrying transient failures with
// exponential backoff. Permanent and critical failures return
// immediately; critical handling (pausing the queue) is the manager's
// job.
func (t *Transcriber) runWithRetries(ctx context.Context, item *queue.Item, outputDir string) (whisper.Result, error) {
	logger := logging.WithContext(ctx, t.logger)
	maxAttempts := t.cfg.Transcriber.MaxRetries + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := t.retryDelay(attempt - 1)
			logger.Info("retrying transcription",
				logging.Int("attempt", attempt+1),
				logging.Int("max_attempts", maxAttempts),
				logging.Duration("backoff", delay))
			if err := sleepCtx(ctx, delay); err != nil {
				return whisper.Result{}, err
			}
		}

		result, err := t.client.Transcribe(ctx, item.SourcePath, outputDir)
		if err == nil {
			return result, nil
		}
		lastErr = err

		item.Attempts++
		item.ErrorMessage = strings.TrimSpace(err.Error())
		if updateErr := t.store.Update(ctx, item); updateErr != nil {
			logger.Warn("failed to persist attempt count", logging.Error(updateErr))
		}

		switch {
		case errors.Is(err, context.Canceled):
			return whisper.Result{}, err
		case services.IsCritical(err):
			return whisper.Result{}, err
		case services.IsPermanent(err):
			logging.WarnWithContext(logger, "transcription failed permanently", "transcribe_permanent",
				logging.String("file", item.FileName),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the file or its permissions and re-queue it"))
			return whisper.Result{}, err
		default:
			logging.WarnWithContext(logger, "transcription attempt failed", "transcribe_retry",
				logging.Int("attempt", attempt+1),
				logging.Int("max_attempts", maxAttempts),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "will retry with backoff"))
		}
	}
	return whisper.Result{}, services.Wrap(services.ErrExternalTool, stageName, "execute",
		fmt.Sprintf("all %d attempts failed", maxAttempts), lastErr)
}

func (t *Transcriber) retryDelay(attempt int) time.Duration {
	base := time.Duration(t.cfg.Transcriber.RetryBackoffSeconds) * time.Second
	cap := time.Duration(t.cfg.Transcriber.RetryBackoffCapSeconds) * time.Second
	delay := base << attempt
	if cap > 0 && delay > cap {
		delay = cap
	}
	return delay
}

// HealthCheck verifies transcription dependencies.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	if t.cfg == nil {
		return stage.Unhealthy(stageName, "configuration unavailable")
	}
	if t.client == nil {
		return stage.Unhealthy(stageName, "transcriber client unavailable")
	}
	if probe, ok := t.client.(interface{ Probe() error }); ok {
		if err := probe.Probe(); err != nil {
			return stage.Unhealthy(stageName, err.Error())
		}
	}
	for _, dir := range []string{t.cfg.Paths.TranscriptDir, t.cfg.Paths.CompletedDir, t.cfg.Paths.FailedDir, t.cfg.Paths.WorkDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return stage.Unhealthy(stageName, fmt.Sprintf("directory %s unavailable", filepath.Clean(dir)))
		}
	}
	return stage.Healthy(stageName)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
