package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/archive"
	"scribe/internal/logging"
	"scribe/internal/testsupport"
)

func TestCompleteAudioMovesFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	archiver := archive.New(cfg, logging.NewNop())

	src := filepath.Join(cfg.Paths.WatchDir, "lecture.mp3")
	testsupport.WriteFile(t, src, 64)

	final, err := archiver.CompleteAudio(context.Background(), src)
	if err != nil {
		t.Fatalf("CompleteAudio failed: %v", err)
	}
	if filepath.Dir(final) != cfg.Paths.CompletedDir {
		t.Fatalf("unexpected destination: %q", final)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source removed from watch dir")
	}
	if _, err := os.Stat(final); err != nil {
		t.Fatalf("expected archived file: %v", err)
	}
}

func TestFailAudioAllocatesCollisionSafeName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	archiver := archive.New(cfg, logging.NewNop())

	ctx := context.Background()
	var finals []string
	for i := 0; i < 3; i++ {
		src := filepath.Join(cfg.Paths.WatchDir, "retry.wav")
		testsupport.WriteFile(t, src, 16)
		final, err := archiver.FailAudio(ctx, src)
		if err != nil {
			t.Fatalf("FailAudio %d failed: %v", i, err)
		}
		finals = append(finals, filepath.Base(final))
	}

	want := []string{"retry.wav", "retry_1.wav", "retry_2.wav"}
	for i, name := range want {
		if finals[i] != name {
			t.Fatalf("unexpected names: got %v want %v", finals, want)
		}
	}
}

func TestPlaceTranscriptUsesTxtExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	archiver := archive.New(cfg, logging.NewNop())

	ctx := context.Background()
	temp := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(temp, []byte("transcript text"), 0o644); err != nil {
		t.Fatalf("write temp transcript: %v", err)
	}

	final, err := archiver.PlaceTranscript(ctx, temp, "podcast.m4a")
	if err != nil {
		t.Fatalf("PlaceTranscript failed: %v", err)
	}
	if filepath.Base(final) != "podcast.txt" {
		t.Fatalf("unexpected transcript name: %q", final)
	}

	second := filepath.Join(t.TempDir(), "out2.txt")
	if err := os.WriteFile(second, []byte("second take"), 0o644); err != nil {
		t.Fatalf("write temp transcript: %v", err)
	}
	finalDup, err := archiver.PlaceTranscript(ctx, second, "podcast.m4a")
	if err != nil {
		t.Fatalf("PlaceTranscript duplicate failed: %v", err)
	}
	if filepath.Base(finalDup) != "podcast_1.txt" {
		t.Fatalf("unexpected duplicate transcript name: %q", finalDup)
	}
}

func TestNextAvailablePathEmptyStem(t *testing.T) {
	dir := t.TempDir()
	path, err := archive.NextAvailablePath(dir, " ", ".txt")
	if err != nil {
		t.Fatalf("NextAvailablePath failed: %v", err)
	}
	if filepath.Base(path) != "unnamed.txt" {
		t.Fatalf("unexpected fallback name: %q", path)
	}
}
