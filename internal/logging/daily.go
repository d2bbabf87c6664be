package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dailyFilePrefix = "scribe-"

// DailyFileName returns the log file name for the given day.
func DailyFileName(day time.Time) string {
	return dailyFilePrefix + day.In(time.Local).Format("2006-01-02") + ".log"
}

// DailyFilePattern matches the files DailyWriter produces, for retention pruning.
const DailyFilePattern = dailyFilePrefix + "*.log"

// DailyWriter appends to a per-day log file inside dir, switching files when
// the local date changes. Open failures surface through Write so logging setup
// itself never blocks daemon startup.
type DailyWriter struct {
	mu   sync.Mutex
	dir  string
	day  string
	file *os.File
}

// NewDailyWriter creates a writer rooted at dir. The directory must exist.
func NewDailyWriter(dir string) *DailyWriter {
	return &DailyWriter{dir: dir}
}

// Write implements io.Writer.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := time.Now().In(time.Local).Format("2006-01-02")
	if w.file == nil || day != w.day {
		if err := w.rotateLocked(day); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

func (w *DailyWriter) rotateLocked(day string) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	path := filepath.Join(w.dir, dailyFilePrefix+day+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	w.file = file
	w.day = day
	return nil
}

// Close releases the current file handle.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

var _ io.WriteCloser = (*DailyWriter)(nil)
