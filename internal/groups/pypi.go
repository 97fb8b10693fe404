package groups

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forge-cli/forge/internal/core"
)

// PyPIRepositoryEnvVar overrides the twine upload target. Set it to
// "testpypi" to publish to Test PyPI, or to any repository name configured
// in .pypirc. The CLI sets it from --repository.
const PyPIRepositoryEnvVar = "FORGE_PYPI_REPOSITORY"

// PyPIGroup holds package publishing commands for Python projects.
func PyPIGroup() (*core.CommandGroup, error) {
	g := core.NewCommandGroup("pypi", "PyPI", "PyPI package publishing commands", 8)

	g.Add(
		core.NewCustomCommand("pypi-validate", "Validate",
			"Validate package build and metadata", "pypi", pypiValidate),
		core.NewCustomCommand("pypi-push", "Push",
			"Build and upload package to PyPI", "pypi", pypiPush),
	)

	return g, nil
}

// findPyprojectRoot walks upward from cwd looking for pyproject.toml.
func findPyprojectRoot(cwd string) (string, bool) {
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "pyproject.toml")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// ensureBuildTools installs build and twine when they are missing. Returns
// a failure result and false when installation is required but fails.
func ensureBuildTools(ctx context.Context, ec *core.ExecutionContext, commandID string, steps *[]string) (core.CommandResult, bool) {
	check := runShell(ctx, ec, commandID, "python -m pip show build twine")
	if check.Success() {
		return core.CommandResult{}, true
	}

	*steps = append(*steps, "Installing build and twine...")
	install := runShell(ctx, ec, commandID, "python -m pip install build twine")
	if !install.Success() {
		install.Error = "failed to install build tools"
		return install, false
	}
	*steps = append(*steps, "Build tools installed")
	return core.CommandResult{}, true
}

func pypiValidate(ctx context.Context, ec *core.ExecutionContext) core.CommandResult {
	const id = "pypi-validate"
	var steps []string

	root, ok := findPyprojectRoot(ec.Cwd)
	if !ok {
		return core.NewFailureResult(id, "pyproject.toml not found")
	}
	steps = append(steps, "pyproject.toml found")
	rootCtx := ec.WithCwd(root)

	if failure, ok := ensureBuildTools(ctx, rootCtx, id, &steps); !ok {
		return failure
	}

	steps = append(steps, "Building package to validate...")
	build := runShell(ctx, rootCtx, id, "python -m build")
	if !build.Success() {
		build.Error = "package build validation failed"
		return build
	}
	steps = append(steps, "Package build validation passed")

	if hasDistFiles(root) {
		check := runShell(ctx, rootCtx, id, "python -m twine check dist/*")
		if !check.Success() {
			check.Error = "package metadata validation failed"
			return check
		}
		steps = append(steps, "Package metadata validation passed")
	}

	return core.CommandResult{
		CommandID: id,
		ExitCode:  0,
		Stdout:    joinNonEmpty(strings.Join(steps, "\n"), build.Stdout),
	}
}

func pypiPush(ctx context.Context, ec *core.ExecutionContext) core.CommandResult {
	const id = "pypi-push"
	var steps []string

	root, ok := findPyprojectRoot(ec.Cwd)
	if !ok {
		return core.NewFailureResult(id, "pyproject.toml not found")
	}
	rootCtx := ec.WithCwd(root)

	if failure, ok := ensureBuildTools(ctx, rootCtx, id, &steps); !ok {
		return failure
	}

	distPath := filepath.Join(root, "dist")
	if _, err := os.Stat(distPath); err == nil {
		if ec.DryRun {
			steps = append(steps, "[DRY RUN] Would clean dist directory")
		} else if err := os.RemoveAll(distPath); err != nil {
			return core.NewFailureResult(id, fmt.Sprintf("failed to clean dist directory: %v", err))
		} else {
			steps = append(steps, "Cleaned dist directory")
		}
	}

	steps = append(steps, "Building package...")
	build := runShell(ctx, rootCtx, id, "python -m build")
	if !build.Success() {
		build.Error = "package build failed"
		return build
	}
	steps = append(steps, "Package built successfully")

	repository := ec.Env[PyPIRepositoryEnvVar]
	target := "PyPI"
	uploadShell := "python -m twine upload"
	if repository != "" {
		uploadShell += " --repository " + repository
		if repository == "testpypi" {
			target = "Test PyPI"
		} else {
			target = repository
		}
	}
	uploadShell += " dist/*"

	steps = append(steps, "Uploading to "+target+"...")
	upload := runShell(ctx, rootCtx, id, uploadShell)
	if !upload.Success() {
		upload.Error = "upload to " + target + " failed"
		return upload
	}
	steps = append(steps, "Uploaded to "+target)

	return core.CommandResult{
		CommandID: id,
		ExitCode:  0,
		Stdout:    joinNonEmpty(strings.Join(steps, "\n"), upload.Stdout),
	}
}

func hasDistFiles(root string) bool {
	entries, err := os.ReadDir(filepath.Join(root, "dist"))
	return err == nil && len(entries) > 0
}
