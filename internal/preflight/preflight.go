package preflight

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Watch directory", cfg.Paths.WatchDir),
		CheckDirectoryAccess("Transcript directory", cfg.Paths.TranscriptDir),
		CheckDirectoryAccess("Completed directory", cfg.Paths.CompletedDir),
		CheckDirectoryAccess("Failed directory", cfg.Paths.FailedDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available}
		if status.Available {
			result.Detail = fmt.Sprintf("%s available", status.Command)
		} else {
			result.Detail = status.Detail
			if status.Optional {
				result.Passed = true
				result.Detail = fmt.Sprintf("%s (optional)", status.Detail)
			}
		}
		results = append(results, result)
	}

	if len(cfg.Transcriber.Extensions) == 0 {
		results = append(results, Result{Name: "Audio extensions", Detail: "no extensions configured"})
	} else {
		results = append(results, Result{
			Name:   "Audio extensions",
			Passed: true,
			Detail: strings.Join(cfg.Transcriber.Extensions, ", "),
		})
	}

	return results
}
