package api

import (
	"testing"
	"time"

	"scribe/internal/queue"
)

func TestFromQueueItem(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	item := &queue.Item{
		ID:              7,
		SourcePath:      "/inbox/show.mp3",
		FileName:        "show.mp3",
		Status:          queue.StatusCompleted,
		TranscriptPath:  "/transcripts/show.txt",
		ArchivedPath:    "/completed/show.mp3",
		Attempts:        1,
		FileSize:        2048,
		ProgressStage:   "Completed",
		ProgressMessage: "Transcription complete",
		CreatedAt:       created,
	}

	dto := FromQueueItem(item)
	if dto.ID != 7 || dto.Status != "completed" {
		t.Fatalf("unexpected conversion: %+v", dto)
	}
	if dto.Progress.Stage != "Completed" {
		t.Fatalf("progress stage = %q", dto.Progress.Stage)
	}
	if dto.CreatedAt != "2026-03-14T09:26:53.000Z" {
		t.Fatalf("created at = %q", dto.CreatedAt)
	}
	if dto.UpdatedAt != "" {
		t.Fatalf("expected empty updated at, got %q", dto.UpdatedAt)
	}
}

func TestFromQueueItemsSkipsNil(t *testing.T) {
	items := []*queue.Item{nil, {ID: 1, Status: queue.StatusPending}}
	out := FromQueueItems(items)
	if len(out) != 1 || out[0].ID != 1 {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestFromQueueItemNil(t *testing.T) {
	dto := FromQueueItem(nil)
	if dto.ID != 0 || dto.Status != "" {
		t.Fatalf("expected zero value, got %+v", dto)
	}
}
