package readiness_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/logging"
	"scribe/internal/readiness"
	"scribe/internal/services"
	"scribe/internal/testsupport"
)

func TestWaitUntilReadyStableFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	checker := readiness.New(cfg, logging.NewNop())

	path := filepath.Join(cfg.Paths.WatchDir, "steady.mp3")
	testsupport.WriteFile(t, path, 128)

	size, err := checker.WaitUntilReady(context.Background(), path)
	if err != nil {
		t.Fatalf("WaitUntilReady failed: %v", err)
	}
	if size != 128 {
		t.Fatalf("unexpected size: %d", size)
	}
}

func TestWaitUntilReadyGivesUpOnGrowingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Readiness.MaxWaitSeconds = 2
	checker := readiness.New(cfg, logging.NewNop())

	path := filepath.Join(cfg.Paths.WatchDir, "growing.wav")
	testsupport.WriteFile(t, path, 16)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return
				}
				_, _ = f.Write([]byte("more"))
				_ = f.Close()
			}
		}
	}()
	defer close(stop)

	_, err := checker.WaitUntilReady(context.Background(), path)
	if !errors.Is(err, readiness.ErrNeverSettled) {
		t.Fatalf("expected ErrNeverSettled, got %v", err)
	}
}

func TestWaitUntilReadyRejectsEmptyFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Readiness.MaxWaitSeconds = 2
	checker := readiness.New(cfg, logging.NewNop())

	path := filepath.Join(cfg.Paths.WatchDir, "empty.mp3")
	if err := os.MkdirAll(cfg.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	_, err := checker.WaitUntilReady(context.Background(), path)
	if !errors.Is(err, readiness.ErrNeverSettled) {
		t.Fatalf("expected ErrNeverSettled for zero-byte file, got %v", err)
	}
}

func TestWaitUntilReadyMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	checker := readiness.New(cfg, logging.NewNop())

	_, err := checker.WaitUntilReady(context.Background(), filepath.Join(cfg.Paths.WatchDir, "gone.mp3"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestWaitUntilReadyHonorsCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Readiness.InitialDelaySeconds = 60
	checker := readiness.New(cfg, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := checker.WaitUntilReady(ctx, filepath.Join(cfg.Paths.WatchDir, "any.mp3"))
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitUntilReady did not return after cancellation")
	}
}
