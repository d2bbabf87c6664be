// Package api defines the transport-friendly data shapes shared by the
// IPC server and CLI. Queue items are converted from their storage form
// into stable JSON payloads so clients do not depend on internal types.
package api
