package api

import (
	"time"

	"scribe/internal/queue"
)

// FromQueueItem converts a storage queue item into its API shape.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	return QueueItem{
		ID:         item.ID,
		SourcePath: item.SourcePath,
		FileName:   item.FileName,
		Status:     string(item.Status),
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Message: item.ProgressMessage,
		},
		ErrorMessage:   item.ErrorMessage,
		Attempts:       item.Attempts,
		FileSize:       item.FileSize,
		TranscriptPath: item.TranscriptPath,
		ArchivedPath:   item.ArchivedPath,
		CreatedAt:      formatTime(item.CreatedAt),
		UpdatedAt:      formatTime(item.UpdatedAt),
	}
}

// FromQueueItems converts a slice of storage items, skipping nil entries.
func FromQueueItems(items []*queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, FromQueueItem(item))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
