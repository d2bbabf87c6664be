// Package whisper wraps the external speech-to-text CLI. The client
// builds the command line, enforces the configured timeout, and turns
// the tool's stderr output into classified errors so callers can decide
// between retrying, failing permanently, or pausing the queue.
package whisper
