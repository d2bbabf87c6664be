package config

import (
	"errors"
	"fmt"
	"strings"

	"scribe/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateReadiness(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.TranscriptDir) == "" {
		return errors.New("paths.transcript_dir must be set")
	}
	if c.Paths.WatchDir == c.Paths.CompletedDir {
		return errors.New("paths.completed_dir must differ from paths.watch_dir")
	}
	if c.Paths.WatchDir == c.Paths.FailedDir {
		return errors.New("paths.failed_dir must differ from paths.watch_dir")
	}
	return nil
}

func (c *Config) validateTranscriber() error {
	if strings.TrimSpace(c.Transcriber.Binary) == "" {
		return errors.New("transcriber.binary must be set")
	}
	if !language.IsKnown(c.Transcriber.Language) {
		return fmt.Errorf("transcriber.language %q is not a recognized language code", c.Transcriber.Language)
	}
	if err := ensurePositiveMap(map[string]int{
		"transcriber.timeout_seconds":           c.Transcriber.TimeoutSeconds,
		"transcriber.retry_backoff_seconds":     c.Transcriber.RetryBackoffSeconds,
		"transcriber.retry_backoff_cap_seconds": c.Transcriber.RetryBackoffCapSeconds,
		"transcriber.critical_pause_seconds":    c.Transcriber.CriticalPauseSeconds,
	}); err != nil {
		return err
	}
	if c.Transcriber.MaxRetries < 0 {
		return errors.New("transcriber.max_retries must be >= 0")
	}
	if c.Transcriber.MinFreeSpaceMB < 0 {
		return errors.New("transcriber.min_free_space_mb must be >= 0")
	}
	if c.Transcriber.RetryBackoffCapSeconds < c.Transcriber.RetryBackoffSeconds {
		return errors.New("transcriber.retry_backoff_cap_seconds must be >= transcriber.retry_backoff_seconds")
	}
	if len(c.Transcriber.Extensions) == 0 {
		return errors.New("transcriber.extensions must include at least one extension")
	}
	return nil
}

func (c *Config) validateReadiness() error {
	if c.Readiness.InitialDelaySeconds < 0 {
		return errors.New("readiness.initial_delay_seconds must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"readiness.poll_interval_seconds":    c.Readiness.PollIntervalSeconds,
		"readiness.poll_backoff_cap_seconds": c.Readiness.PollBackoffCapSeconds,
		"readiness.max_wait_seconds":         c.Readiness.MaxWaitSeconds,
	}); err != nil {
		return err
	}
	if c.Readiness.PollBackoffCapSeconds < c.Readiness.PollIntervalSeconds {
		return errors.New("readiness.poll_backoff_cap_seconds must be >= readiness.poll_interval_seconds")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":     c.Workflow.QueuePollInterval,
		"workflow.scan_interval":           c.Workflow.ScanInterval,
		"workflow.error_retry_interval":    c.Workflow.ErrorRetryInterval,
		"workflow.health_check_interval":   c.Workflow.HealthCheckInterval,
		"workflow.restart_max_attempts":    c.Workflow.RestartMaxAttempts,
		"workflow.restart_backoff_seconds": c.Workflow.RestartBackoffSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.DedupWindowSeconds < 0 {
		return errors.New("workflow.dedup_window_seconds must be >= 0")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
