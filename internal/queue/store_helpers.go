package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, source_path, file_name, status, transcript_path, archived_path, error_message, attempts, file_size, created_at, updated_at, progress_stage, progress_message, last_heartbeat"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		sourcePath       string
		fileName         string
		statusStr        string
		transcriptPath   sql.NullString
		archivedPath     sql.NullString
		errorMessage     sql.NullString
		attempts         sql.NullInt64
		fileSize         sql.NullInt64
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&fileName,
		&statusStr,
		&transcriptPath,
		&archivedPath,
		&errorMessage,
		&attempts,
		&fileSize,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressMessage,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		SourcePath:      sourcePath,
		FileName:        fileName,
		Status:          Status(statusStr),
		TranscriptPath:  transcriptPath.String,
		ArchivedPath:    archivedPath.String,
		ErrorMessage:    errorMessage.String,
		Attempts:        int(attempts.Int64),
		FileSize:        fileSize.Int64,
		ProgressStage:   progressStage.String,
		ProgressMessage: progressMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
