package whisper

import (
	"strings"

	"scribe/internal/services"
)

// failurePattern maps a stderr substring to the sentinel describing how
// the failure should be handled. Patterns are matched case-insensitively
// in order; the first hit wins.
type failurePattern struct {
	needle string
	marker error
	reason string
}

// Priority order: disk, permission, unsupported input, network, memory.
// The order decides the winner when stderr matches several classes.
var failurePatterns = []failurePattern{
	{"no space left on device", services.ErrCritical, "disk full"},
	{"disk quota exceeded", services.ErrCritical, "disk full"},
	{"permission denied", services.ErrPermanent, "permission denied"},
	{"operation not permitted", services.ErrPermanent, "permission denied"},
	{"unsupported format", services.ErrPermanent, "unsupported format"},
	{"invalid data found", services.ErrPermanent, "unsupported format"},
	{"format not recognised", services.ErrPermanent, "unsupported format"},
	{"format not recognized", services.ErrPermanent, "unsupported format"},
	{"could not decode", services.ErrPermanent, "unsupported format"},
	{"connection refused", services.ErrTransient, "network error"},
	{"connection reset", services.ErrTransient, "network error"},
	{"connection timed out", services.ErrTransient, "network error"},
	{"temporary failure in name resolution", services.ErrTransient, "network error"},
	{"network is unreachable", services.ErrTransient, "network error"},
	{"ssl", services.ErrTransient, "network error"},
	{"http error", services.ErrTransient, "network error"},
	{"out of memory", services.ErrCritical, "out of memory"},
	{"cannot allocate memory", services.ErrCritical, "out of memory"},
	{"memoryerror", services.ErrCritical, "out of memory"},
}

// Classify inspects captured stderr output and returns the sentinel for
// the failure class plus a short human-readable reason. Unrecognized
// output is treated as transient so the caller retries.
func Classify(stderr string) (error, string) {
	lowered := strings.ToLower(stderr)
	for _, pattern := range failurePatterns {
		if strings.Contains(lowered, pattern.needle) {
			return pattern.marker, pattern.reason
		}
	}
	return services.ErrTransient, "transcription failed"
}
