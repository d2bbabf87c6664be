// Package workflow coordinates queue processing. The manager polls the
// queue for pending items and runs them through the transcription stage
// one at a time, pausing the whole queue when a critical environment
// failure such as a full disk is reported.
package workflow
