package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"scribe/internal/logging"
	"scribe/internal/testsupport"
	"scribe/internal/watch"
)

type recorder struct {
	mu    sync.Mutex
	paths map[string]int
}

func newRecorder() *recorder {
	return &recorder{paths: make(map[string]int)}
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[path]++
}

func (r *recorder) seen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paths[path] > 0
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcherPicksUpBacklogOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	backlog := filepath.Join(cfg.Paths.WatchDir, "existing.mp3")
	testsupport.WriteFile(t, backlog, 32)

	rec := newRecorder()
	watcher := watch.New(cfg, logging.NewNop(), rec.handle)
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	waitFor(t, 5*time.Second, func() bool { return rec.seen(backlog) })
}

func TestWatcherSeesNewFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	rec := newRecorder()
	watcher := watch.New(cfg, logging.NewNop(), rec.handle)
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	dropped := filepath.Join(cfg.Paths.WatchDir, "fresh.wav")
	testsupport.WriteFile(t, dropped, 32)

	waitFor(t, 5*time.Second, func() bool { return rec.seen(dropped) })
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	rec := newRecorder()
	watcher := watch.New(cfg, logging.NewNop(), rec.handle)
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	audio := filepath.Join(cfg.Paths.WatchDir, "keep.flac")
	junk := filepath.Join(cfg.Paths.WatchDir, "notes.txt")
	testsupport.WriteFile(t, audio, 8)
	testsupport.WriteFile(t, junk, 8)

	waitFor(t, 5*time.Second, func() bool { return rec.seen(audio) })
	if rec.seen(junk) {
		t.Fatal("expected non-audio file to be ignored")
	}
}

func TestWatcherHealthyAndRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	rec := newRecorder()
	watcher := watch.New(cfg, logging.NewNop(), rec.handle)

	if err := watcher.Healthy(); err == nil {
		t.Fatal("expected stopped watcher to be unhealthy")
	}

	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return !watcher.LastSweep().IsZero() })
	if err := watcher.Healthy(); err != nil {
		t.Fatalf("expected running watcher to be healthy: %v", err)
	}

	if err := watcher.Restart(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	defer watcher.Stop()
	if err := watcher.Healthy(); err != nil {
		t.Fatalf("expected restarted watcher to be healthy: %v", err)
	}

	after := filepath.Join(cfg.Paths.WatchDir, "after-restart.ogg")
	testsupport.WriteFile(t, after, 8)
	waitFor(t, 5*time.Second, func() bool { return rec.seen(after) })
}

func TestWatcherStartMissingDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.WatchDir = filepath.Join(cfg.Paths.WatchDir, "does", "not", "exist")

	watcher := watch.New(cfg, logging.NewNop(), func(context.Context, string) {})
	if err := watcher.Start(context.Background()); err == nil {
		watcher.Stop()
		t.Fatal("expected error for missing watch directory")
	}
	if _, err := os.Stat(cfg.Paths.WatchDir); !os.IsNotExist(err) {
		t.Fatal("test precondition failed: dir should not exist")
	}
}
