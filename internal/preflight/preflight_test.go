package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAllReportsMissingDirectories(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.WatchDir = filepath.Join(base, "watch")
	cfg.Paths.TranscriptDir = filepath.Join(base, "transcripts")
	cfg.Paths.CompletedDir = filepath.Join(base, "completed")
	cfg.Paths.FailedDir = filepath.Join(base, "failed")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	results := RunAll(context.Background(), &cfg)
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	failures := 0
	for _, r := range results {
		if r.Name == "Watch directory" && r.Passed {
			t.Fatal("expected watch directory check to fail before creation")
		}
		if !r.Passed {
			failures++
		}
	}
	if failures == 0 {
		t.Fatal("expected at least one failing check")
	}
}

func TestRunAllPassesAfterEnsureDirectories(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.WatchDir = filepath.Join(base, "watch")
	cfg.Paths.TranscriptDir = filepath.Join(base, "transcripts")
	cfg.Paths.CompletedDir = filepath.Join(base, "completed")
	cfg.Paths.FailedDir = filepath.Join(base, "failed")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	// EnsureDirectories leaves the watch dir alone; the operator provides it.
	if err := os.MkdirAll(cfg.Paths.WatchDir, 0o755); err != nil {
		t.Fatal(err)
	}

	for _, r := range RunAll(context.Background(), &cfg) {
		switch r.Name {
		case "Watch directory", "Transcript directory", "Completed directory", "Failed directory", "Work directory", "Audio extensions":
			if !r.Passed {
				t.Fatalf("expected %s to pass, got: %s", r.Name, r.Detail)
			}
		}
	}
}

func TestCheckSystemDepsReportsMissingBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Transcriber.Binary = "definitely-not-installed-bin"
	statuses := CheckSystemDeps(context.Background(), &cfg)
	if len(statuses) != 1 {
		t.Fatalf("expected one status, got %d", len(statuses))
	}
	if statuses[0].Available {
		t.Fatal("expected transcriber binary to be unavailable")
	}
}
