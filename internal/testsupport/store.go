package testsupport

import (
	"context"
	"testing"

	"scribe/internal/config"
	"scribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueFile inserts a pending item for tests using the provided store.
func EnqueueFile(t testing.TB, store *queue.Store, sourcePath string) *queue.Item {
	t.Helper()

	item, created, err := store.Enqueue(context.Background(), sourcePath, 1, 0)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	if !created {
		t.Fatalf("expected new item for %s", sourcePath)
	}
	return item
}
