package groups

import (
	"context"
	"fmt"

	"github.com/forge-cli/forge/internal/core"
	"github.com/forge-cli/forge/internal/manifest"
)

// BumpKindEnvVar selects the bump kind for "version bump". The CLI sets it
// on the execution context from --major/--minor/--patch; patch is the
// default.
const BumpKindEnvVar = "FORGE_VERSION_BUMP"

// VersionGroup holds version management commands. The ids use the space
// convention ("version show") rather than the hyphen convention; token
// resolution handles both identically.
func VersionGroup() (*core.CommandGroup, error) {
	g := core.NewCommandGroup("version", "Version", "Version management commands", 7)

	g.Add(
		core.NewCustomCommand("version show", "Show", "Show current version", "version", versionShow),
		core.NewCustomCommand("version bump", "Bump",
			"Bump version number (--major, --minor, --patch)", "version", versionBump),
		core.NewCustomCommand("version tag", "Tag",
			"Create git tag for current version", "version", versionTag),
	)

	return g, nil
}

func versionShow(ctx context.Context, ec *core.ExecutionContext) core.CommandResult {
	const id = "version show"

	info, err := manifest.Find(ec.Cwd)
	if err != nil {
		return core.NewFailureResult(id, "version information not available (no project manifest found)")
	}

	output := info.Version
	if info.Name != "" && info.Version != "" {
		output = info.Name + " " + info.Version
	}
	if output == "" {
		return core.NewFailureResult(id, "version information not available")
	}

	return core.CommandResult{CommandID: id, ExitCode: 0, Stdout: output}
}

func versionBump(ctx context.Context, ec *core.ExecutionContext) core.CommandResult {
	const id = "version bump"

	info, err := manifest.Find(ec.Cwd)
	if err != nil || info.Version == "" {
		return core.NewFailureResult(id, "could not determine current version from project manifest")
	}

	newVersion, err := manifest.BumpVersion(info.Version, ec.Env[BumpKindEnvVar])
	if err != nil {
		return core.NewFailureResult(id, err.Error())
	}

	if ec.DryRun {
		return core.NewDryRunResult(id, fmt.Sprintf("bump version %s -> %s in %s", info.Version, newVersion, info.Path))
	}

	if err := manifest.WriteVersion(info, newVersion); err != nil {
		return core.NewFailureResult(id, fmt.Sprintf("failed to update %s: %v", info.Path, err))
	}

	return core.CommandResult{
		CommandID: id,
		ExitCode:  0,
		Stdout:    fmt.Sprintf("Version bumped: %s -> %s", info.Version, newVersion),
	}
}

func versionTag(ctx context.Context, ec *core.ExecutionContext) core.CommandResult {
	const id = "version tag"

	info, err := manifest.Find(ec.Cwd)
	if err != nil || info.Version == "" {
		return core.NewFailureResult(id, "could not determine current version from project manifest")
	}

	tagName := "v" + info.Version
	result := runShell(ctx, ec, id,
		fmt.Sprintf(`git tag -a "%s" -m "Version %s"`, tagName, info.Version))

	if result.Success() && !ec.DryRun {
		return core.CommandResult{CommandID: id, ExitCode: 0, Stdout: "Created tag: " + tagName, Duration: result.Duration}
	}
	if !result.Success() && result.Error == "" {
		result.Error = "failed to create git tag"
	}
	return result
}
