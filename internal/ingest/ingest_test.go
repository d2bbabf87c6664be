package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/ingest"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/readiness"
	"scribe/internal/testsupport"
)

func newIngestor(t *testing.T) (*ingest.Ingestor, *queue.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	checker := readiness.New(cfg, logging.NewNop())
	return ingest.New(cfg, logging.NewNop(), store, checker), store, cfg.Paths.WatchDir
}

func TestAdmitEnqueuesSettledFile(t *testing.T) {
	ing, store, watchDir := newIngestor(t)

	path := filepath.Join(watchDir, "episode.mp3")
	testsupport.WriteFile(t, path, 64)

	ing.Admit(context.Background(), path)
	ing.Wait()

	item, err := store.FindBySourcePath(context.Background(), path)
	if err != nil {
		t.Fatalf("FindBySourcePath: %v", err)
	}
	if item == nil {
		t.Fatal("expected item to be enqueued")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.FileSize != 64 {
		t.Fatalf("expected recorded size 64, got %d", item.FileSize)
	}
}

func TestAdmitCollapsesDuplicateEvents(t *testing.T) {
	ing, store, watchDir := newIngestor(t)

	path := filepath.Join(watchDir, "episode.mp3")
	testsupport.WriteFile(t, path, 64)

	ctx := context.Background()
	ing.Admit(ctx, path)
	ing.Admit(ctx, path)
	ing.Admit(ctx, path)
	ing.Wait()

	items, err := store.ItemsByStatus(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("ItemsByStatus: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected a single queued item, got %d", len(items))
	}
}

func TestAdmitSkipsMissingFile(t *testing.T) {
	ing, store, watchDir := newIngestor(t)

	path := filepath.Join(watchDir, "vanished.wav")
	ing.Admit(context.Background(), path)
	ing.Wait()

	item, err := store.FindBySourcePath(context.Background(), path)
	if err != nil {
		t.Fatalf("FindBySourcePath: %v", err)
	}
	if item != nil {
		t.Fatal("expected no item for a file that never existed")
	}
	if ing.InFlight() != 0 {
		t.Fatal("expected no in-flight admissions after Wait")
	}
}

func TestAdmitMovesUnsettledFileToFailed(t *testing.T) {
	ing, store, watchDir := newIngestor(t)

	path := filepath.Join(watchDir, "stuck.m4a")
	testsupport.WriteFile(t, path, 64)

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not hold test lock: locked=%v err=%v", locked, err)
	}
	defer func() { _ = lock.Unlock() }()

	ing.Admit(context.Background(), path)
	ing.Wait()

	item, err := store.FindBySourcePath(context.Background(), path)
	if err != nil {
		t.Fatalf("FindBySourcePath: %v", err)
	}
	if item != nil {
		t.Fatal("expected no enqueue for a file that never settled")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file removed from watch dir, stat err = %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(filepath.Dir(watchDir), "failed"))
	if err != nil {
		t.Fatalf("read failed dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "stuck.m4a" {
		t.Fatalf("expected stuck.m4a in failed dir, got %v", entries)
	}
}

func TestAdmitHonorsCancellation(t *testing.T) {
	ing, store, watchDir := newIngestor(t)

	path := filepath.Join(watchDir, "slow.flac")
	testsupport.WriteFile(t, path, 64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ing.Admit(ctx, path)

	done := make(chan struct{})
	go func() {
		ing.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}

	item, err := store.FindBySourcePath(context.Background(), path)
	if err != nil {
		t.Fatalf("FindBySourcePath: %v", err)
	}
	if item != nil {
		t.Fatal("expected no enqueue for a cancelled admission")
	}
}
