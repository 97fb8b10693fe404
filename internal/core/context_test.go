package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-cli/forge/config"
)

func TestNewExecutionContext_AbsoluteCwd(t *testing.T) {
	ec := NewExecutionContext("", nil)
	assert.True(t, filepath.IsAbs(ec.Cwd))

	tmp := t.TempDir()
	ec = NewExecutionContext(tmp, nil)
	assert.Equal(t, tmp, ec.Cwd)
}

func TestExecutionContext_Options(t *testing.T) {
	cb := func(line, stream string) {}
	ec := NewExecutionContext(t.TempDir(), nil,
		WithDryRun(true),
		WithVerbose(true),
		WithTimeout(30*time.Second),
		WithRetries(2),
		WithStreamCallback(cb),
		WithEnvOverrides(map[string]string{"KEY": "value"}),
	)

	assert.True(t, ec.DryRun)
	assert.True(t, ec.Verbose)
	assert.Equal(t, 30*time.Second, ec.Timeout)
	assert.Equal(t, 2, ec.Retries)
	assert.NotNil(t, ec.StreamCallback)
	assert.Equal(t, "value", ec.Env["KEY"])
}

func TestExecutionContext_GetEnvMergeOrder(t *testing.T) {
	t.Setenv("FORGE_TEST_OS", "from-os")
	t.Setenv("FORGE_TEST_PROFILE", "from-os")
	t.Setenv("FORGE_TEST_CONTEXT", "from-os")

	cfg := &config.Config{
		Environments: map[string]map[string]string{
			"staging": {
				"FORGE_TEST_PROFILE": "from-profile",
				"FORGE_TEST_CONTEXT": "from-profile",
			},
		},
	}

	ec := NewExecutionContext(t.TempDir(), cfg,
		WithEnvOverrides(map[string]string{"FORGE_TEST_CONTEXT": "from-context"}))

	env := ec.GetEnv("staging")

	assert.Equal(t, "from-os", env["FORGE_TEST_OS"])
	assert.Equal(t, "from-profile", env["FORGE_TEST_PROFILE"])
	assert.Equal(t, "from-context", env["FORGE_TEST_CONTEXT"])
}

func TestExecutionContext_GetEnvReturnsCopy(t *testing.T) {
	ec := NewExecutionContext(t.TempDir(), nil,
		WithEnvOverrides(map[string]string{"KEY": "original"}))

	env := ec.GetEnv("")
	env["KEY"] = "mutated"

	assert.Equal(t, "original", ec.GetEnv("")["KEY"])
}

func TestExecutionContext_ResolvePath(t *testing.T) {
	tmp := t.TempDir()
	ec := NewExecutionContext(tmp, nil)

	assert.Equal(t, "/absolute/path", ec.ResolvePath("/absolute/path"))
	assert.Equal(t, filepath.Join(tmp, "sub", "dir"), ec.ResolvePath("sub/dir"))
	assert.Equal(t, filepath.Join(tmp, "sub"), ec.ResolvePath("./sub/../sub"))
}

func TestExecutionContext_ProjectName(t *testing.T) {
	tmp := t.TempDir()

	ec := NewExecutionContext(tmp, &config.Config{ProjectName: "configured"})
	assert.Equal(t, "configured", ec.ProjectName())

	ec = NewExecutionContext(tmp, nil)
	assert.Equal(t, filepath.Base(tmp), ec.ProjectName())
}

func TestExecutionContext_ChildDoesNotMutateParent(t *testing.T) {
	tmp := t.TempDir()
	sub := filepath.Join(tmp, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	parent := NewExecutionContext(tmp, nil,
		WithTimeout(time.Minute),
		WithEnvOverrides(map[string]string{"SHARED": "parent", "PARENT_ONLY": "yes"}))

	dryRun := true
	timeout := 5 * time.Second
	child := parent.Child(ChildOverrides{
		Cwd:     "sub",
		Env:     map[string]string{"SHARED": "child", "CHILD_ONLY": "yes"},
		DryRun:  &dryRun,
		Timeout: &timeout,
	})

	assert.Equal(t, sub, child.Cwd)
	assert.True(t, child.DryRun)
	assert.Equal(t, 5*time.Second, child.Timeout)
	assert.Equal(t, "child", child.Env["SHARED"])
	assert.Equal(t, "yes", child.Env["PARENT_ONLY"])
	assert.Equal(t, "yes", child.Env["CHILD_ONLY"])

	// Parent untouched.
	assert.Equal(t, tmp, parent.Cwd)
	assert.False(t, parent.DryRun)
	assert.Equal(t, time.Minute, parent.Timeout)
	assert.Equal(t, "parent", parent.Env["SHARED"])
	assert.NotContains(t, parent.Env, "CHILD_ONLY")
}

func TestExecutionContext_WithCwdAndWithEnv(t *testing.T) {
	tmp := t.TempDir()
	ec := NewExecutionContext(tmp, nil)

	child := ec.WithCwd("nested")
	assert.Equal(t, filepath.Join(tmp, "nested"), child.Cwd)

	envChild := ec.WithEnv(map[string]string{"K": "v"})
	assert.Equal(t, "v", envChild.Env["K"])
	assert.NotContains(t, ec.Env, "K")
}

func TestExecutionContext_LazyTemplateEngine(t *testing.T) {
	ec := NewExecutionContext(t.TempDir(), &config.Config{ProjectName: "myapp"})

	assert.Equal(t, "echo myapp", ec.ExpandTemplates("echo {project_name}"))
	assert.Same(t, ec.TemplateEngine(), ec.TemplateEngine())
}
