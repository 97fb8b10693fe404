package groups

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-cli/forge/config"
	"github.com/forge-cli/forge/internal/core"
)

// scriptedRunner replies to each shell invocation in order, recording the
// requests it saw. Missing entries default to success.
type scriptedRunner struct {
	requests []core.ShellRequest
	replies  []core.CommandResult
}

func (s *scriptedRunner) RunShellCommand(ctx context.Context, req core.ShellRequest) core.CommandResult {
	s.requests = append(s.requests, req)

	var result core.CommandResult
	if len(s.requests) <= len(s.replies) {
		result = s.replies[len(s.requests)-1]
	}
	result.CommandID = req.CommandID
	return result
}

func (s *scriptedRunner) RunShellCommandsParallel(ctx context.Context, reqs []core.ShellRequest) []core.CommandResult {
	results := make([]core.CommandResult, len(reqs))
	for i, req := range reqs {
		results[i] = s.RunShellCommand(ctx, req)
	}
	return results
}

func (s *scriptedRunner) shells() []string {
	var shells []string
	for _, req := range s.requests {
		shells = append(shells, req.Shell)
	}
	return shells
}

func newTestContext(t *testing.T, runner core.ShellRunner) *core.ExecutionContext {
	t.Helper()
	cfg := &config.Config{ProjectName: "myapp", DefaultRegistry: "ghcr.io/acme"}
	return core.NewExecutionContext(t.TempDir(), cfg, core.WithRunner(runner))
}

func TestBuiltins_AllProvidersLoad(t *testing.T) {
	r := core.NewRegistry()
	loaded := r.DiscoverBuiltinGroups(Builtins())

	assert.Equal(t, []string{
		"forge", "general", "quality", "application",
		"docker", "compose", "git", "version", "pypi",
	}, loaded)

	for _, id := range []string{
		"docs-build", "lint", "test", "run",
		"docker-build", "compose-up", "git-status",
		"version show", "pypi-push",
	} {
		assert.True(t, r.Contains(id), "expected builtin command %s", id)
	}
}

func TestRunShell_DryRun(t *testing.T) {
	runner := &scriptedRunner{}
	ec := newTestContext(t, runner)
	dry := ec.Child(core.ChildOverrides{DryRun: boolPtr(true)})

	result := runShell(context.Background(), dry, "any", "echo hi")

	assert.True(t, result.Success())
	assert.Contains(t, result.Stdout, "echo hi")
	assert.Empty(t, runner.requests)
}

func TestRunShell_NoRunner(t *testing.T) {
	ec := core.NewExecutionContext(t.TempDir(), nil)

	result := runShell(context.Background(), ec, "any", "echo hi")

	assert.False(t, result.Success())
	assert.Contains(t, result.Error, "no shell runner configured")
}

func TestCombineResults(t *testing.T) {
	combined := combineResults("multi",
		core.CommandResult{ExitCode: 0, Stdout: "one", Duration: 10},
		core.CommandResult{ExitCode: 3, Stderr: "bad", Error: "step failed", Duration: 20},
		core.CommandResult{ExitCode: 5, Error: "later failure", Duration: 30},
	)

	assert.Equal(t, "multi", combined.CommandID)
	assert.Equal(t, 3, combined.ExitCode, "first non-zero exit wins")
	assert.Equal(t, "step failed", combined.Error)
	assert.Equal(t, "one", combined.Stdout)
	assert.Equal(t, "bad", combined.Stderr)
	assert.EqualValues(t, 60, combined.Duration)
}

func TestCombineResults_KeepsMetadata(t *testing.T) {
	combined := combineResults("multi",
		core.CommandResult{Metadata: map[string]any{"run_id": "run-1", "pid": 41}},
		core.CommandResult{Metadata: map[string]any{"run_id": "run-2"}},
		core.CommandResult{},
	)

	// The first streamed step's marker survives so callers do not reprint
	// output that already went to the terminal live.
	assert.Equal(t, "run-1", combined.Metadata["run_id"])
	assert.Equal(t, 41, combined.Metadata["pid"])
}

func TestDockerBuild_TagsVersionWhenKnown(t *testing.T) {
	runner := &scriptedRunner{}
	cfg := &config.Config{ProjectName: "myapp"}
	tmp := t.TempDir()
	writePyproject(t, tmp, "1.2.3")
	ec := core.NewExecutionContext(tmp, cfg, core.WithRunner(runner))

	result := dockerBuild(context.Background(), ec)

	require.True(t, result.Success())
	shells := runner.shells()
	require.Len(t, shells, 2)
	assert.Equal(t, "docker build -t myapp:latest .", shells[0])
	assert.Equal(t, "docker tag myapp:latest myapp:1.2.3", shells[1])
}

func TestDockerBuild_NoVersionTagWithoutManifest(t *testing.T) {
	runner := &scriptedRunner{}
	ec := core.NewExecutionContext(t.TempDir(), &config.Config{ProjectName: "myapp"},
		core.WithRunner(runner))

	result := dockerBuild(context.Background(), ec)

	require.True(t, result.Success())
	require.Len(t, runner.requests, 1)
}

func TestDockerBuild_StopsOnBuildFailure(t *testing.T) {
	runner := &scriptedRunner{replies: []core.CommandResult{{ExitCode: 1, Error: "build broke"}}}
	ec := newTestContext(t, runner)

	result := dockerBuild(context.Background(), ec)

	assert.False(t, result.Success())
	assert.Len(t, runner.requests, 1)
}

func TestDockerPush_FailFastOnTag(t *testing.T) {
	runner := &scriptedRunner{replies: []core.CommandResult{{ExitCode: 2, Error: "no such image"}}}
	ec := newTestContext(t, runner)

	result := dockerPush(context.Background(), ec)

	assert.False(t, result.Success())
	assert.Equal(t, 2, result.ExitCode)
	assert.Contains(t, result.Error, "failed to tag image")
	assert.Len(t, runner.requests, 1, "push must not run after tag failure")
}

func TestDockerPush_PushesLatestAndVersion(t *testing.T) {
	runner := &scriptedRunner{}
	cfg := &config.Config{ProjectName: "myapp", DefaultRegistry: "ghcr.io/acme"}
	tmp := t.TempDir()
	writePyproject(t, tmp, "1.2.3")
	ec := core.NewExecutionContext(tmp, cfg, core.WithRunner(runner))

	result := dockerPush(context.Background(), ec)

	require.True(t, result.Success())
	shells := runner.shells()
	require.Len(t, shells, 4)
	assert.Contains(t, shells[0], "docker tag myapp:latest ghcr.io/acme/myapp:latest")
	assert.Equal(t, "docker push ghcr.io/acme/myapp:latest", shells[1])
	assert.Contains(t, shells[2], "ghcr.io/acme/myapp:1.2.3")
	assert.Equal(t, "docker push ghcr.io/acme/myapp:1.2.3", shells[3])
}

func TestDockerBuildAndPush_StopsOnBuildFailure(t *testing.T) {
	runner := &scriptedRunner{replies: []core.CommandResult{{ExitCode: 1, Error: "compile error"}}}
	ec := newTestContext(t, runner)

	result := dockerBuildAndPush(context.Background(), ec)

	assert.False(t, result.Success())
	assert.Contains(t, result.Error, "build failed")
	assert.Len(t, runner.requests, 1)
}

func TestComposeCommands_DetectComposeFile(t *testing.T) {
	runner := &scriptedRunner{}
	tmp := t.TempDir()
	require.NoError(t, writeFileHelper(tmp, "compose.yaml", "services: {}"))
	ec := core.NewExecutionContext(tmp, nil, core.WithRunner(runner))

	group, err := ComposeGroup()
	require.NoError(t, err)

	up := group.Command("compose-up")
	require.NotNil(t, up)
	result := up.Execute(context.Background(), ec)

	require.True(t, result.Success())
	require.Len(t, runner.requests, 1)
	assert.Contains(t, runner.requests[0].Shell, "-f compose.yaml")
}

func TestComposeCommands_DefaultComposeFile(t *testing.T) {
	runner := &scriptedRunner{}
	ec := core.NewExecutionContext(t.TempDir(), nil, core.WithRunner(runner))

	group, err := ComposeGroup()
	require.NoError(t, err)

	result := group.Command("compose-ps").Execute(context.Background(), ec)

	require.True(t, result.Success())
	require.Len(t, runner.requests, 1)
	assert.Contains(t, runner.requests[0].Shell, "-f docker-compose.yml")
}

func TestVersionShow(t *testing.T) {
	tmp := t.TempDir()
	writePyproject(t, tmp, "1.2.3")
	ec := core.NewExecutionContext(tmp, nil)

	result := versionShow(context.Background(), ec)

	require.True(t, result.Success())
	assert.Contains(t, result.Stdout, "1.2.3")
}

func TestVersionShow_NoManifest(t *testing.T) {
	ec := core.NewExecutionContext(t.TempDir(), nil)

	result := versionShow(context.Background(), ec)

	assert.False(t, result.Success())
	assert.Contains(t, result.Error, "version information not available")
}

func TestVersionBump(t *testing.T) {
	tmp := t.TempDir()
	writePyproject(t, tmp, "1.2.3")

	t.Run("patch by default", func(t *testing.T) {
		ec := core.NewExecutionContext(tmp, nil)
		result := versionBump(context.Background(), ec)

		require.True(t, result.Success())
		assert.Contains(t, result.Stdout, "1.2.3 -> 1.2.4")
	})

	t.Run("minor via env", func(t *testing.T) {
		ec := core.NewExecutionContext(tmp, nil,
			core.WithEnvOverrides(map[string]string{BumpKindEnvVar: "minor"}))
		result := versionBump(context.Background(), ec)

		require.True(t, result.Success())
		assert.Contains(t, result.Stdout, "-> 1.3.0")
	})
}

func TestVersionBump_DryRun(t *testing.T) {
	tmp := t.TempDir()
	writePyproject(t, tmp, "1.2.3")
	ec := core.NewExecutionContext(tmp, nil, core.WithDryRun(true))

	result := versionBump(context.Background(), ec)

	require.True(t, result.Success())
	assert.Contains(t, result.Stdout, "[DRY RUN]")

	// The manifest is untouched.
	ec2 := core.NewExecutionContext(tmp, nil)
	show := versionShow(context.Background(), ec2)
	assert.Contains(t, show.Stdout, "1.2.3")
}

func TestVersionTag(t *testing.T) {
	tmp := t.TempDir()
	writePyproject(t, tmp, "1.2.3")
	runner := &scriptedRunner{}
	ec := core.NewExecutionContext(tmp, nil, core.WithRunner(runner))

	result := versionTag(context.Background(), ec)

	require.True(t, result.Success())
	require.Len(t, runner.requests, 1)
	assert.Contains(t, runner.requests[0].Shell, `git tag -a "v1.2.3"`)
	assert.Contains(t, result.Stdout, "v1.2.3")
}

func TestPyPIValidate_NoPyproject(t *testing.T) {
	ec := core.NewExecutionContext(t.TempDir(), nil)

	result := pypiValidate(context.Background(), ec)

	assert.False(t, result.Success())
	assert.Contains(t, result.Error, "pyproject.toml not found")
}

func TestPyPIPush_RepositorySelection(t *testing.T) {
	tmp := t.TempDir()
	writePyproject(t, tmp, "1.2.3")
	runner := &scriptedRunner{}
	ec := core.NewExecutionContext(tmp, nil,
		core.WithRunner(runner),
		core.WithEnvOverrides(map[string]string{PyPIRepositoryEnvVar: "testpypi"}))

	result := pypiPush(context.Background(), ec)

	require.True(t, result.Success())
	var uploadShell string
	for _, shell := range runner.shells() {
		if strings.Contains(shell, "twine upload") {
			uploadShell = shell
		}
	}
	require.NotEmpty(t, uploadShell)
	assert.Contains(t, uploadShell, "--repository testpypi")
	assert.Contains(t, result.Stdout, "Test PyPI")
}

func boolPtr(b bool) *bool { return &b }

func writeFileHelper(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

func writePyproject(t *testing.T, dir, version string) {
	t.Helper()
	content := "[project]\nname = \"myapp\"\nversion = \"" + version + "\"\n"
	require.NoError(t, writeFileHelper(dir, "pyproject.toml", content))
}
