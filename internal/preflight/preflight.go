package preflight

import (
	"context"

	"rarpack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to the given config and run.
// Source and destination checks only run when the run names them.
func RunAll(ctx context.Context, cfg *config.Config, rc config.RunConfig) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckCompressor(rc.Executable))

	for _, source := range rc.Sources {
		results = append(results, CheckSourceFolder(source))
	}

	if rc.Mode == config.OutputDestination && rc.DestinationDir != "" {
		results = append(results, CheckDirectoryAccess("Destination folder", rc.DestinationDir))
	}

	results = append(results, CheckWritableLocation("State directory", cfg.Paths.StateDir))
	results = append(results, CheckWritableLocation("Log directory", cfg.Paths.LogDir))

	switch rc.OutcomeMode {
	case config.OutcomePerRun:
		results = append(results, CheckWritableLocation("Outcome folder", rc.PerRunDir))
	default:
		results = append(results, CheckWritableLocation("Outcome history", parentDir(rc.HistoryFile)))
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}
