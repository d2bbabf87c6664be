package main

import (
	"sort"
	"strings"

	"scribe/internal/ipc"
	"scribe/internal/queue"
)

var statusDisplayOrder = []string{
	string(queue.StatusPending),
	string(queue.StatusTranscribing),
	string(queue.StatusCompleted),
	string(queue.StatusFailed),
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return "Unknown"
	}
	return strings.ToUpper(status[:1]) + strings.ToLower(status[1:])
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(stats))
	seen := make(map[string]struct{}, len(stats))
	for _, status := range statusDisplayOrder {
		count, ok := stats[status]
		if !ok {
			continue
		}
		seen[status] = struct{}{}
		rows = append(rows, []string{formatStatusLabel(status), itoa(count)})
	}

	extras := make([]string, 0)
	for status := range stats {
		if _, ok := seen[status]; !ok {
			extras = append(extras, status)
		}
	}
	sort.Strings(extras)
	for _, status := range extras {
		rows = append(rows, []string{formatStatusLabel(status), itoa(stats[status])})
	}
	return rows
}

func buildQueueListRows(items []ipc.QueueItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		stage := item.Progress.Stage
		if stage == "" {
			stage = "-"
		}
		rows = append(rows, []string{
			itoa64(item.ID),
			item.FileName,
			formatStatusLabel(item.Status),
			stage,
			itoa(item.Attempts),
			item.CreatedAt,
		})
	}
	return rows
}
