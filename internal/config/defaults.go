package config

const (
	defaultWatchDir      = "~/audio/inbox"
	defaultTranscriptDir = "~/audio/transcripts"
	defaultCompletedDir  = "~/audio/completed"
	defaultFailedDir     = "~/audio/failed"
	defaultLogDir        = "~/.local/share/scribe/logs"
	defaultWorkDir       = "~/.local/share/scribe"

	defaultTranscriberBinary      = "whisper"
	defaultTranscriberModel       = "base"
	defaultTranscriptionTimeout   = 600
	defaultMaxRetries             = 2
	defaultRetryBackoffSeconds    = 5
	defaultRetryBackoffCapSeconds = 60
	defaultCriticalPauseSeconds   = 300
	defaultMinFreeSpaceMB         = 512

	defaultReadinessInitialDelay   = 15
	defaultReadinessPollInterval   = 2
	defaultReadinessPollBackoffCap = 30
	defaultReadinessMaxWait        = 300

	defaultQueuePollInterval     = 5
	defaultScanInterval          = 15
	defaultErrorRetryInterval    = 10
	defaultHealthCheckInterval   = 60
	defaultRestartMaxAttempts    = 5
	defaultRestartBackoffSeconds = 5
	defaultDedupWindowSeconds    = 60
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 120

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

func defaultExtensions() []string {
	return []string{".m4a", ".mp3", ".wav", ".flac", ".aac", ".ogg", ".wma", ".m4b", ".webm"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:      defaultWatchDir,
			TranscriptDir: defaultTranscriptDir,
			CompletedDir:  defaultCompletedDir,
			FailedDir:     defaultFailedDir,
			LogDir:        defaultLogDir,
			WorkDir:       defaultWorkDir,
		},
		Transcriber: Transcriber{
			Binary:                 defaultTranscriberBinary,
			Model:                  defaultTranscriberModel,
			TimeoutSeconds:         defaultTranscriptionTimeout,
			MaxRetries:             defaultMaxRetries,
			RetryBackoffSeconds:    defaultRetryBackoffSeconds,
			RetryBackoffCapSeconds: defaultRetryBackoffCapSeconds,
			CriticalPauseSeconds:   defaultCriticalPauseSeconds,
			Extensions:             defaultExtensions(),
			MinFreeSpaceMB:         defaultMinFreeSpaceMB,
		},
		Readiness: Readiness{
			InitialDelaySeconds:   defaultReadinessInitialDelay,
			PollIntervalSeconds:   defaultReadinessPollInterval,
			PollBackoffCapSeconds: defaultReadinessPollBackoffCap,
			MaxWaitSeconds:        defaultReadinessMaxWait,
		},
		Workflow: Workflow{
			QueuePollInterval:     defaultQueuePollInterval,
			ScanInterval:          defaultScanInterval,
			ErrorRetryInterval:    defaultErrorRetryInterval,
			HealthCheckInterval:   defaultHealthCheckInterval,
			RestartMaxAttempts:    defaultRestartMaxAttempts,
			RestartBackoffSeconds: defaultRestartBackoffSeconds,
			DedupWindowSeconds:    defaultDedupWindowSeconds,
			HeartbeatInterval:     defaultHeartbeatInterval,
			HeartbeatTimeout:      defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
