package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/stage"
	"scribe/internal/testsupport"
)

type passHandler struct{}

func (passHandler) Prepare(context.Context, *queue.Item) error { return nil }

func (passHandler) Execute(_ context.Context, item *queue.Item) error {
	item.TranscriptPath = "/tmp/transcript.txt"
	return nil
}

func (passHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("transcriber")
}

func newDaemon(t *testing.T) (*daemon.Daemon, *config.Config, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop(), daemon.WithStageHandler(passHandler{}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, cfg, store
}

func TestDaemonProcessesDroppedFile(t *testing.T) {
	d, cfg, store := newDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	path := filepath.Join(cfg.Paths.WatchDir, "meeting.mp3")
	testsupport.WriteFile(t, path, 256)

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		item, err := store.FindBySourcePath(context.Background(), path)
		if err != nil {
			t.Fatalf("FindBySourcePath: %v", err)
		}
		if item != nil && item.Status == queue.StatusCompleted {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("dropped file never reached completed status")
}

func TestStartAbortsWhenWatchDirMissing(t *testing.T) {
	d, cfg, _ := newDaemon(t)

	if err := os.RemoveAll(cfg.Paths.WatchDir); err != nil {
		t.Fatalf("remove watch dir: %v", err)
	}
	err := d.Start(context.Background())
	if err == nil {
		d.Stop()
		t.Fatal("expected Start to fail without a watch directory")
	}
	if !strings.Contains(err.Error(), "watch directory") {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status(context.Background()).Running {
		t.Fatal("daemon must not be running after failed start")
	}
}

func TestDaemonSecondInstanceRejected(t *testing.T) {
	first, cfg, _ := newDaemon(t)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	store := testsupport.MustOpenStore(t, cfg)
	second, err := daemon.New(cfg, store, logging.NewNop(), daemon.WithStageHandler(passHandler{}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}

func TestDaemonStartStopCycle(t *testing.T) {
	d, _, _ := newDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart after Stop failed: %v", err)
	}
	d.Stop()
}

func TestAddFileValidatesExtension(t *testing.T) {
	d, cfg, _ := newDaemon(t)

	audio := filepath.Join(cfg.Paths.WatchDir, "note.wav")
	testsupport.WriteFile(t, audio, 16)
	item, err := d.AddFile(context.Background(), audio)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending item, got %s", item.Status)
	}

	junk := filepath.Join(cfg.Paths.WatchDir, "note.pdf")
	testsupport.WriteFile(t, junk, 16)
	if _, err := d.AddFile(context.Background(), junk); err == nil {
		t.Fatal("expected rejection of non-audio extension")
	}

	if _, err := d.AddFile(context.Background(), " "); err == nil {
		t.Fatal("expected rejection of blank path")
	}
}

func TestAddFileRejectsDuplicate(t *testing.T) {
	d, cfg, _ := newDaemon(t)

	audio := filepath.Join(cfg.Paths.WatchDir, "dup.flac")
	testsupport.WriteFile(t, audio, 16)
	if _, err := d.AddFile(context.Background(), audio); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if _, err := d.AddFile(context.Background(), audio); err == nil {
		t.Fatal("expected duplicate rejection")
	}
}

func TestDaemonStatus(t *testing.T) {
	d, cfg, _ := newDaemon(t)
	status := d.Status(context.Background())
	if status.Running {
		t.Fatal("expected not running before Start")
	}
	if status.QueueDBPath != cfg.DatabasePath() {
		t.Fatalf("queue db path = %s", status.QueueDBPath)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()
	status = d.Status(context.Background())
	if !status.Running {
		t.Fatal("expected running after Start")
	}
	if status.PID == 0 {
		t.Fatal("expected PID to be set")
	}
}
