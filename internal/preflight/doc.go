// Package preflight provides readiness checks for the filesystem paths and
// external tools that Scribe depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll once at startup and logs the outcome so a
//     misconfigured install is visible before any file is processed.
//   - The CLI "scribe status" command uses individual check functions
//     (CheckDirectoryAccess, CheckSystemDeps) to display environment health.
package preflight
