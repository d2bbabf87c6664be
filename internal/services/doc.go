// Package services defines shared utilities consumed by the transcription
// stage handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent retry decisions (retry vs permanent vs critical pause).
//   - Thin abstractions that make command execution from external tools
//     testable.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
