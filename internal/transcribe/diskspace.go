package transcribe

import (
	"fmt"

	"golang.org/x/sys/unix"

	"scribe/internal/services"
)

// checkFreeSpace verifies the filesystem holding path has at least
// minFreeMB megabytes available. Running the tool against a full disk
// wastes a long transcription run, so this is checked up front.
func checkFreeSpace(path string, minFreeMB int) error {
	if minFreeMB <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "check disk space",
			fmt.Sprintf("statfs %s", path), err)
	}
	freeMB := stat.Bavail * uint64(stat.Bsize) / (1024 * 1024)
	if freeMB < uint64(minFreeMB) {
		return services.Wrap(services.ErrCritical, stageName, "check disk space",
			fmt.Sprintf("only %d MB free at %s, need %d MB", freeMB, path, minFreeMB), nil)
	}
	return nil
}
