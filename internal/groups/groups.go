// Package groups provides the built-in command groups: project setup,
// quality checks, application runtime, docker and compose workflows, git
// shortcuts, version management and package publishing.
package groups

import (
	"context"

	"github.com/forge-cli/forge/internal/core"
)

// Builtins returns the ordered provider list for built-in groups. The
// registry loads them best effort, skipping any provider that fails.
func Builtins() []core.GroupProvider {
	return []core.GroupProvider{
		ForgeGroup,
		GeneralGroup,
		QualityGroup,
		ApplicationGroup,
		DockerGroup,
		ComposeGroup,
		GitGroup,
		VersionGroup,
		PyPIGroup,
	}
}

// runShell dispatches one shell step from a custom command through the
// context's runner, honoring dry-run mode.
func runShell(ctx context.Context, ec *core.ExecutionContext, commandID, shell string) core.CommandResult {
	if ec.DryRun {
		return core.NewDryRunResult(commandID, shell)
	}
	if ec.Runner == nil {
		return core.NewFailureResult(commandID, "no shell runner configured")
	}

	return ec.Runner.RunShellCommand(ctx, core.ShellRequest{
		CommandID:      commandID,
		Shell:          shell,
		Cwd:            ec.Cwd,
		Env:            ec.GetEnv(""),
		Timeout:        ec.Timeout,
		StreamCallback: ec.StreamCallback,
	})
}

// combineResults folds multi-step results into one, concatenating output,
// summing durations and merging metadata. The exit code is the first
// non-zero one. Keeping metadata matters for consumers that check a run_id
// marker to tell streamed shell output from buffered output.
func combineResults(commandID string, results ...core.CommandResult) core.CommandResult {
	combined := core.CommandResult{CommandID: commandID}

	for _, r := range results {
		if combined.ExitCode == 0 && r.ExitCode != 0 {
			combined.ExitCode = r.ExitCode
			combined.Error = r.Error
		}
		combined.Stdout = joinNonEmpty(combined.Stdout, r.Stdout)
		combined.Stderr = joinNonEmpty(combined.Stderr, r.Stderr)
		combined.Duration += r.Duration

		for k, v := range r.Metadata {
			if combined.Metadata == nil {
				combined.Metadata = make(map[string]any)
			}
			if _, exists := combined.Metadata[k]; !exists {
				combined.Metadata[k] = v
			}
		}
	}

	return combined
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
