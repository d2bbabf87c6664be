// Package daemon wires the service together: the queue store, the
// workflow manager, the filesystem watcher with its ingest pipeline,
// and the health supervisor. It enforces single-instance execution with
// a lock file and defines the start and shutdown ordering.
package daemon
