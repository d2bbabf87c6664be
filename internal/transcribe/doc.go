// Package transcribe implements the transcription stage. It drives the
// external speech-to-text tool for a queued item, retries transient
// failures with exponential backoff, and files the results through the
// archiver when a run succeeds.
package transcribe
