package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scribe/internal/queue"
	"scribe/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, created, err := store.Enqueue(ctx, "/inbox/interview.mp3", 2048, 0)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !created {
		t.Fatal("expected new item")
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.FileName != "interview.mp3" {
		t.Fatalf("unexpected file name: %q", item.FileName)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.SourcePath != "/inbox/interview.mp3" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if fetched.FileSize != 2048 {
		t.Fatalf("unexpected file size: %d", fetched.FileSize)
	}
}

func TestEnqueueSuppressesActiveDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, created, err := store.Enqueue(ctx, "/inbox/a.wav", 1, 0)
	if err != nil || !created {
		t.Fatalf("first enqueue: %v created=%v", err, created)
	}

	dup, created, err := store.Enqueue(ctx, "/inbox/a.wav", 1, 0)
	if err != nil {
		t.Fatalf("duplicate enqueue: %v", err)
	}
	if created {
		t.Fatal("expected duplicate to be suppressed while pending")
	}
	if dup.ID != first.ID {
		t.Fatalf("expected existing item, got %d want %d", dup.ID, first.ID)
	}

	first.Status = queue.StatusTranscribing
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, created, err = store.Enqueue(ctx, "/inbox/a.wav", 1, 0); err != nil || created {
		t.Fatalf("expected suppression during transcribing: %v created=%v", err, created)
	}
}

func TestEnqueueDedupWindowAfterCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, _, err := store.Enqueue(ctx, "/inbox/b.flac", 1, time.Minute)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	item.Status = queue.StatusCompleted
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Inside the window the completed entry still suppresses re-enqueue.
	if _, created, err := store.Enqueue(ctx, "/inbox/b.flac", 1, time.Minute); err != nil || created {
		t.Fatalf("expected dedup inside window: %v created=%v", err, created)
	}

	// A zero window admits the file again immediately.
	if _, created, err := store.Enqueue(ctx, "/inbox/b.flac", 1, 0); err != nil || !created {
		t.Fatalf("expected new item with zero window: %v created=%v", err, created)
	}
}

func TestNextPendingReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var first *queue.Item
	for i := 0; i < 3; i++ {
		item, _, err := store.Enqueue(ctx, fmt.Sprintf("/inbox/file-%d.mp3", i), 1, 0)
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		if first == nil {
			first = item
		}
	}

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest item %d, got %#v", first.ID, next)
	}

	next.Status = queue.StatusCompleted
	if err := store.Update(ctx, next); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	second, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if second == nil || second.ID == first.ID {
		t.Fatalf("expected the following item, got %#v", second)
	}
}

func TestResetStuckTranscribing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueFile(t, store, "/inbox/stuck.ogg")
	item.Status = queue.StatusTranscribing
	now := time.Now().UTC()
	item.LastHeartbeat = &now
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.ResetStuckTranscribing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckTranscribing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 item reset, got %d", count)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if updated.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}
}

func TestReclaimStaleTranscribing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.EnqueueFile(t, store, "/inbox/stale.m4a")
	stale.Status = queue.StatusTranscribing
	old := time.Now().UTC().Add(-10 * time.Minute)
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := testsupport.EnqueueFile(t, store, "/inbox/fresh.m4a")
	fresh.Status = queue.StatusTranscribing
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	count, err := store.ReclaimStaleTranscribing(ctx, time.Now().UTC().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleTranscribing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", count)
	}

	reclaimed, _ := store.GetByID(ctx, stale.ID)
	if reclaimed.Status != queue.StatusPending {
		t.Fatalf("expected stale item pending, got %s", reclaimed.Status)
	}
	untouched, _ := store.GetByID(ctx, fresh.ID)
	if untouched.Status != queue.StatusTranscribing {
		t.Fatalf("expected fresh item untouched, got %s", untouched.Status)
	}
}

func TestRetryFailedResetsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueFile(t, store, "/inbox/failed.mp3")
	item.SetFailed("transcriber exited 1")
	item.Attempts = 3
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, item.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried item, got %d", count)
	}

	updated, _ := store.GetByID(ctx, item.ID)
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if updated.Attempts != 0 {
		t.Fatalf("expected attempts reset, got %d", updated.Attempts)
	}
	if updated.ErrorMessage != "" {
		t.Fatalf("expected error cleared, got %q", updated.ErrorMessage)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.EnqueueFile(t, store, "/inbox/one.mp3")
	_ = pending
	done := testsupport.EnqueueFile(t, store, "/inbox/two.mp3")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed := testsupport.EnqueueFile(t, store, "/inbox/three.mp3")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Completed != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}

	removed, err := store.ClearCompleted(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearCompleted: %v removed=%d", err, removed)
	}
	removed, err = store.ClearFailed(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearFailed: %v removed=%d", err, removed)
	}
}

func TestCheckHealthReportsDiagnostics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.EnqueueFile(t, store, "/inbox/diag.mp3")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected database health: %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("expected no missing columns, got %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalItems != 1 {
		t.Fatalf("expected 1 item, got %d", health.TotalItems)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Pending "); !ok || status != queue.StatusPending {
		t.Fatalf("unexpected parse result: %v %v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
