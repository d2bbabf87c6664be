package whisper

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/language"
	"scribe/internal/services"
)

const stageName = "transcriber"

// Transcriber defines the behaviour required by the transcription handler.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir string) (Result, error)
}

// Result describes a completed transcription run.
type Result struct {
	// TranscriptPath is the text file the tool wrote.
	TranscriptPath string
	// Size is the transcript size in bytes.
	Size int64
	// Elapsed is how long the tool ran.
	Elapsed time.Duration
}

// Executor abstracts command execution for testability. Run returns the
// captured stderr output alongside any execution error.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStderr func(string)) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the speech-to-text CLI.
type Client struct {
	binary   string
	model    string
	language string
	timeout  time.Duration
	exec     Executor
}

// New constructs a client from the transcriber configuration.
func New(cfg config.Transcriber, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		return nil, errors.New("transcriber binary required")
	}
	client := &Client{
		binary:   binary,
		model:    strings.TrimSpace(cfg.Model),
		language: language.ToISO2(cfg.Language),
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		exec:     commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured binary name for logging and preflight.
func (c *Client) Binary() string { return c.binary }

// Model returns the configured model name for logging.
func (c *Client) Model() string { return c.model }

// Probe verifies the binary can be located on PATH.
func (c *Client) Probe() error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "probe",
			fmt.Sprintf("%s not found on PATH", c.binary), err)
	}
	return nil
}

// Transcribe runs the tool against source and verifies the transcript it
// produced. outputDir receives the tool's output files; the transcript
// path in the result points at <outputDir>/<source stem>.txt.
func (c *Client) Transcribe(ctx context.Context, source, outputDir string) (Result, error) {
	var result Result

	if source == "" {
		return result, services.Wrap(services.ErrValidation, stageName, "transcribe", "source path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrCritical, stageName, "transcribe", "ensure output dir", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	stderr, err := c.exec.Run(runCtx, c.binary, c.buildArgs(source, outputDir), nil)
	result.Elapsed = time.Since(started)
	if err != nil {
		return result, c.classifyRunError(ctx, runCtx, stderr, err)
	}

	transcriptPath := filepath.Join(outputDir, sourceStem(source)+".txt")
	size, err := verifyTranscript(transcriptPath)
	if err != nil {
		return result, err
	}
	result.TranscriptPath = transcriptPath
	result.Size = size
	return result, nil
}

func (c *Client) classifyRunError(parent, run context.Context, stderr string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(run.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, "transcribe",
			fmt.Sprintf("%s exceeded %s", c.binary, c.timeout), err)
	}
	marker, reason := Classify(stderr)
	detail := reason
	if tail := stderrTail(stderr); tail != "" {
		detail = fmt.Sprintf("%s: %s", reason, tail)
	}
	return services.Wrap(marker, stageName, "transcribe", detail, err)
}

// verifyTranscript confirms the tool actually produced usable output. A
// zero exit status with a missing or empty transcript still counts as a
// failed attempt.
func verifyTranscript(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, services.Wrap(services.ErrTransient, stageName, "verify",
				fmt.Sprintf("tool exited cleanly but wrote no transcript at %s", path), nil)
		}
		return 0, services.Wrap(services.ErrTransient, stageName, "verify", "stat transcript", err)
	}
	if info.Size() == 0 {
		return 0, services.Wrap(services.ErrTransient, stageName, "verify",
			fmt.Sprintf("transcript %s is empty", path), nil)
	}
	return info.Size(), nil
}

func (c *Client) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 10)
	args = append(args, source)
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	if c.language != "" {
		args = append(args, "--language", c.language)
	}
	args = append(args,
		"--output_dir", outputDir,
		"--output_format", "txt",
	)
	return args
}

func sourceStem(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// stderrTail returns the last non-empty stderr line, which is usually
// the most specific message the tool printed before exiting.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStderr func(string)) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec

	var captured bytes.Buffer
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start command: %w", err)
	}

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		captured.WriteString(line)
		captured.WriteByte('\n')
		if onStderr != nil {
			onStderr(line)
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		return captured.String(), fmt.Errorf("wait command: %w", err)
	}
	if scanErr != nil {
		return captured.String(), fmt.Errorf("scan stderr: %w", scanErr)
	}
	return captured.String(), nil
}
