package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "scribe.toml")
	content := fmt.Sprintf(`[paths]
watch_dir = %q
transcript_dir = %q
completed_dir = %q
failed_dir = %q
log_dir = %q
work_dir = %q
`,
		filepath.Join(base, "watch"),
		filepath.Join(base, "transcripts"),
		filepath.Join(base, "completed"),
		filepath.Join(base, "failed"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "work"),
	)
	if err := os.MkdirAll(filepath.Join(base, "watch"), 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestQueueStatusEmptyQueue(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("expected empty queue message, got: %s", out)
	}
}

func TestAddThenListShowsItem(t *testing.T) {
	cfgPath := writeTestConfig(t)
	audio := filepath.Join(filepath.Dir(cfgPath), "talk.wav")
	if err := os.WriteFile(audio, []byte("RIFF audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	out, err := runCommand(t, "--config", cfgPath, "add", audio)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Queued talk.wav as item #") {
		t.Fatalf("unexpected add output: %s", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "talk.wav") || !strings.Contains(out, "Pending") {
		t.Fatalf("expected pending talk.wav in listing, got: %s", out)
	}
}

func TestAddRejectsUnsupportedExtension(t *testing.T) {
	cfgPath := writeTestConfig(t)
	doc := filepath.Join(filepath.Dir(cfgPath), "notes.txt")
	if err := os.WriteFile(doc, []byte("text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := runCommand(t, "--config", cfgPath, "add", doc)
	if err == nil {
		t.Fatal("expected unsupported extension error")
	}
	if !strings.Contains(err.Error(), "unsupported file extension") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueueClearRemovesItems(t *testing.T) {
	cfgPath := writeTestConfig(t)
	audio := filepath.Join(filepath.Dir(cfgPath), "memo.mp3")
	if err := os.WriteFile(audio, []byte("ID3 audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if _, err := runCommand(t, "--config", cfgPath, "add", audio); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := runCommand(t, "--config", cfgPath, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 queue items") {
		t.Fatalf("unexpected clear output: %s", out)
	}
}

func TestQueueShowUnknownItem(t *testing.T) {
	cfgPath := writeTestConfig(t)
	_, err := runCommand(t, "--config", cfgPath, "queue", "show", "42")
	if err == nil {
		t.Fatal("expected error for unknown item")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueueHealthSummary(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	for _, want := range []string{"Total: 0", "Pending: 0", "Transcribing: 0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got: %s", want, out)
		}
	}
}
