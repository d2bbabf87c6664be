// Package archive files finished work into its final directories.
//
// The Archiver moves source audio into the completed or failed directory and
// places transcripts into the transcript directory, allocating collision-safe
// names so repeated filenames never overwrite earlier results.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"scribe/internal/config"
	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/services"
)

// Archiver moves processed audio and transcripts into their final locations.
type Archiver struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs the archiver.
func New(cfg *config.Config, logger *slog.Logger) *Archiver {
	return &Archiver{cfg: cfg, logger: logging.NewComponentLogger(logger, "archiver")}
}

// CompleteAudio moves the source file into the completed directory and
// returns the final path.
func (a *Archiver) CompleteAudio(ctx context.Context, sourcePath string) (string, error) {
	return a.moveInto(ctx, sourcePath, a.cfg.Paths.CompletedDir, "completed")
}

// FailAudio moves the source file into the failed directory and returns the
// final path.
func (a *Archiver) FailAudio(ctx context.Context, sourcePath string) (string, error) {
	return a.moveInto(ctx, sourcePath, a.cfg.Paths.FailedDir, "failed")
}

// PlaceTranscript moves a finished transcript into the transcript directory
// under baseName with a .txt extension, probing for a free slot.
func (a *Archiver) PlaceTranscript(ctx context.Context, tempPath, baseName string) (string, error) {
	logger := logging.WithContext(ctx, a.logger)
	dir := a.cfg.Paths.TranscriptDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "archiving", "ensure transcript dir", "Failed to create transcript directory", err)
	}
	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	target, err := NextAvailablePath(dir, stem, ".txt")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "archiving", "allocate transcript name", "Unable to allocate transcript filename", err)
	}
	if err := fileutil.MoveFile(tempPath, target); err != nil {
		return "", services.Wrap(services.ErrTransient, "archiving", "move transcript", "Failed to move transcript into place", err)
	}
	logger.Info("transcript filed",
		logging.String("path", target),
		logging.String(logging.FieldEventType, "transcript_filed"),
	)
	return target, nil
}

func (a *Archiver) moveInto(ctx context.Context, sourcePath, dir, label string) (string, error) {
	logger := logging.WithContext(ctx, a.logger)
	if strings.TrimSpace(dir) == "" {
		return "", services.Wrap(services.ErrConfiguration, "archiving", "resolve "+label+" dir", "Archive directory not configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "archiving", "ensure "+label+" dir", "Failed to create archive directory", err)
	}

	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	target, err := NextAvailablePath(dir, stem, ext)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "archiving", "allocate "+label+" name", "Unable to allocate archive filename", err)
	}
	if err := fileutil.MoveFile(sourcePath, target); err != nil {
		return "", services.Wrap(services.ErrTransient, "archiving", "move to "+label, "Failed to move audio into archive directory", err)
	}
	logger.Info("audio archived",
		logging.String("path", target),
		logging.String("destination", label),
		logging.String(logging.FieldEventType, "audio_archived"),
	)
	return target, nil
}

// NextAvailablePath probes dir for an unused name, trying stem+ext first and
// then stem_1+ext, stem_2+ext, and so on.
func NextAvailablePath(dir, stem, ext string) (string, error) {
	const maxAttempts = 10000
	if strings.TrimSpace(stem) == "" {
		stem = "unnamed"
	}
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		name := stem + ext
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
		}
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted filename slots for %s in %s", stem, dir)
}
