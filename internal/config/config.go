package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir      string `toml:"watch_dir"`
	TranscriptDir string `toml:"transcript_dir"`
	CompletedDir  string `toml:"completed_dir"`
	FailedDir     string `toml:"failed_dir"`
	LogDir        string `toml:"log_dir"`
	WorkDir       string `toml:"work_dir"`
}

// Transcriber contains configuration for the external speech-to-text tool.
type Transcriber struct {
	Binary                 string   `toml:"binary"`
	Model                  string   `toml:"model"`
	Language               string   `toml:"language"`
	TimeoutSeconds         int      `toml:"timeout_seconds"`
	MaxRetries             int      `toml:"max_retries"`
	RetryBackoffSeconds    int      `toml:"retry_backoff_seconds"`
	RetryBackoffCapSeconds int      `toml:"retry_backoff_cap_seconds"`
	CriticalPauseSeconds   int      `toml:"critical_pause_seconds"`
	Extensions             []string `toml:"extensions"`
	MinFreeSpaceMB         int      `toml:"min_free_space_mb"`
}

// Readiness contains configuration for file stability probing.
type Readiness struct {
	InitialDelaySeconds   int `toml:"initial_delay_seconds"`
	PollIntervalSeconds   int `toml:"poll_interval_seconds"`
	PollBackoffCapSeconds int `toml:"poll_backoff_cap_seconds"`
	MaxWaitSeconds        int `toml:"max_wait_seconds"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval     int `toml:"queue_poll_interval"`
	ScanInterval          int `toml:"scan_interval"`
	ErrorRetryInterval    int `toml:"error_retry_interval"`
	HealthCheckInterval   int `toml:"health_check_interval"`
	RestartMaxAttempts    int `toml:"restart_max_attempts"`
	RestartBackoffSeconds int `toml:"restart_backoff_seconds"`
	DedupWindowSeconds    int `toml:"dedup_window_seconds"`
	HeartbeatInterval     int `toml:"heartbeat_interval"`
	HeartbeatTimeout      int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Scribe.
//
// Configuration sections by subsystem:
//   - Paths: watch, transcript, completed, failed, log, and work directories
//   - Transcriber: external tool invocation, timeouts, and retry policy
//   - Readiness: file stability probing before enqueue
//   - Workflow: daemon polling intervals, health checks, and restarts
//   - Logging: log format, level, and retention
type Config struct {
	Paths       Paths       `toml:"paths"`
	Transcriber Transcriber `toml:"transcriber"`
	Readiness   Readiness   `toml:"readiness"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/scribe/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output directories the daemon owns.
// WatchDir is deliberately not created: it is operator-provided, and a
// missing watch directory is a configuration error, not something to
// paper over with an empty directory (see RequireWatchDir).
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TranscriptDir, c.Paths.CompletedDir, c.Paths.FailedDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequireWatchDir verifies the watch directory exists and is a directory.
// The daemon calls this at startup and aborts on failure.
func (c *Config) RequireWatchDir() error {
	dir := strings.TrimSpace(c.Paths.WatchDir)
	if dir == "" {
		return errors.New("paths.watch_dir must be set")
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("watch directory %q does not exist; create it or fix paths.watch_dir", dir)
		}
		return fmt.Errorf("stat watch directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %q is not a directory", dir)
	}
	return nil
}

// DatabasePath returns the SQLite queue database location inside the work directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.WorkDir, "queue.db")
}

// SocketPath returns the IPC socket location inside the work directory.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.WorkDir, "scribe.sock")
}

// LockPath returns the single-instance lock file location inside the work directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "scribe.lock")
}

// TranscriberBinary returns the external transcription executable name.
func (c *Config) TranscriberBinary() string {
	return c.Transcriber.Binary
}

// WatchesExtension reports whether the given filename carries one of the
// configured audio extensions. Matching is case-insensitive.
func (c *Config) WatchesExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range c.Transcriber.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
