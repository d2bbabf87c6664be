package transcribe_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/archive"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/testsupport"
	"scribe/internal/transcribe"
)

type fakeClient struct {
	calls   int
	times   []time.Time
	failure []error
	text    string
}

func (f *fakeClient) Transcribe(_ context.Context, source, outputDir string) (whisper.Result, error) {
	f.calls++
	f.times = append(f.times, time.Now())
	if f.calls <= len(f.failure) {
		return whisper.Result{}, f.failure[f.calls-1]
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return whisper.Result{}, err
	}
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	path := filepath.Join(outputDir, stem+".txt")
	text := f.text
	if text == "" {
		text = "transcript body"
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return whisper.Result{}, err
	}
	return whisper.Result{TranscriptPath: path, Size: int64(len(text))}, nil
}

func newHandler(t *testing.T, client whisper.Transcriber) (*transcribe.Transcriber, *config.Config, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Transcriber.RetryBackoffSeconds = 0
	cfg.Transcriber.RetryBackoffCapSeconds = 0
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	handler := transcribe.NewTranscriberWithDependencies(cfg, store, logging.NewNop(), client, archive.New(cfg, logging.NewNop()))
	return handler, cfg, store
}

func queueAudioFile(t *testing.T, cfg *config.Config, store *queue.Store, name string) *queue.Item {
	t.Helper()
	path := filepath.Join(cfg.Paths.WatchDir, name)
	testsupport.WriteFile(t, path, 128)
	return testsupport.EnqueueFile(t, store, path)
}

func TestExecuteSuccess(t *testing.T) {
	client := &fakeClient{}
	handler, cfg, store := newHandler(t, client)
	item := queueAudioFile(t, cfg, store, "interview.mp3")

	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	wantTranscript := filepath.Join(cfg.Paths.TranscriptDir, "interview.txt")
	if item.TranscriptPath != wantTranscript {
		t.Fatalf("transcript path = %s, want %s", item.TranscriptPath, wantTranscript)
	}
	data, err := os.ReadFile(wantTranscript)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(data) != "transcript body" {
		t.Fatalf("unexpected transcript content %q", data)
	}

	wantAudio := filepath.Join(cfg.Paths.CompletedDir, "interview.mp3")
	if item.ArchivedPath != wantAudio {
		t.Fatalf("archived path = %s, want %s", item.ArchivedPath, wantAudio)
	}
	if _, err := os.Stat(wantAudio); err != nil {
		t.Fatalf("audio not moved to completed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WatchDir, "interview.mp3")); !os.IsNotExist(err) {
		t.Fatal("source file should be gone from watch directory")
	}
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	client := &fakeClient{failure: []error{
		services.Wrap(services.ErrTransient, "transcriber", "transcribe", "network error", nil),
	}}
	handler, cfg, store := newHandler(t, client)
	item := queueAudioFile(t, cfg, store, "talk.wav")

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", client.calls)
	}
	if item.Attempts != 1 {
		t.Fatalf("expected 1 recorded failed attempt, got %d", item.Attempts)
	}
}

func TestExecuteBacksOffBetweenRetries(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "transcriber", "transcribe", "tool crashed", nil)
	client := &fakeClient{failure: []error{transient, transient}}
	handler, cfg, store := newHandler(t, client)
	cfg.Transcriber.MaxRetries = 2
	cfg.Transcriber.RetryBackoffSeconds = 1
	cfg.Transcriber.RetryBackoffCapSeconds = 60
	item := queueAudioFile(t, cfg, store, "flaky.webm")

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
	if item.Attempts != 2 {
		t.Fatalf("expected 2 recorded failed attempts, got %d", item.Attempts)
	}

	// Backoff doubles per retry: base before the second attempt, 2x base
	// before the third.
	firstGap := client.times[1].Sub(client.times[0])
	secondGap := client.times[2].Sub(client.times[1])
	if firstGap < time.Second {
		t.Fatalf("first retry waited %v, want >= 1s", firstGap)
	}
	if secondGap < 2*time.Second {
		t.Fatalf("second retry waited %v, want >= 2s", secondGap)
	}
}

func TestExecuteStopsOnPermanentFailure(t *testing.T) {
	client := &fakeClient{failure: []error{
		services.Wrap(services.ErrPermanent, "transcriber", "transcribe", "unsupported format", nil),
		services.Wrap(services.ErrPermanent, "transcriber", "transcribe", "unsupported format", nil),
	}}
	handler, cfg, store := newHandler(t, client)
	item := queueAudioFile(t, cfg, store, "corrupt.flac")

	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected error")
	}
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent classification, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("permanent failure should not retry, got %d attempts", client.calls)
	}
}

func TestExecutePropagatesCriticalImmediately(t *testing.T) {
	client := &fakeClient{failure: []error{
		services.Wrap(services.ErrCritical, "transcriber", "transcribe", "disk full", nil),
		services.Wrap(services.ErrCritical, "transcriber", "transcribe", "disk full", nil),
	}}
	handler, cfg, store := newHandler(t, client)
	item := queueAudioFile(t, cfg, store, "long.m4a")

	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected error")
	}
	if !services.IsCritical(err) {
		t.Fatalf("expected critical classification, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("critical failure should not retry, got %d attempts", client.calls)
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "transcriber", "transcribe", "tool crashed", nil)
	client := &fakeClient{failure: []error{transient, transient, transient, transient}}
	handler, cfg, store := newHandler(t, client)
	cfg.Transcriber.MaxRetries = 2
	item := queueAudioFile(t, cfg, store, "noisy.ogg")

	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
	if item.Attempts != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", item.Attempts)
	}
	persisted, gerr := store.GetByID(context.Background(), item.ID)
	if gerr != nil {
		t.Fatalf("GetByID: %v", gerr)
	}
	if persisted.Attempts != 3 {
		t.Fatalf("expected persisted attempts 3, got %d", persisted.Attempts)
	}
}

func TestPrepareMissingSourceIsPermanent(t *testing.T) {
	handler, cfg, store := newHandler(t, &fakeClient{})
	item := queueAudioFile(t, cfg, store, "ghost.mp3")
	if err := os.Remove(item.SourcePath); err != nil {
		t.Fatalf("remove source: %v", err)
	}

	err := handler.Prepare(context.Background(), item)
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent classification, got %v", err)
	}
}

func TestHealthCheckReportsMissingDirectories(t *testing.T) {
	handler, cfg, _ := newHandler(t, &fakeClient{})

	health := handler.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("expected healthy stage, got %s", health.Detail)
	}

	if err := os.RemoveAll(cfg.Paths.TranscriptDir); err != nil {
		t.Fatalf("remove transcript dir: %v", err)
	}
	health = handler.HealthCheck(context.Background())
	if health.Ready {
		t.Fatal("expected unhealthy stage after removing transcript directory")
	}
}
