package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forge-cli/forge/config"
)

// StreamCallback receives one line of live command output together with the
// stream name it arrived on ("stdout" or "stderr").
type StreamCallback func(line, stream string)

// ShellRequest describes a single shell invocation handed to the runner.
type ShellRequest struct {
	CommandID      string
	Shell          string
	Cwd            string
	Env            map[string]string
	Timeout        time.Duration
	StreamCallback StreamCallback
}

// ShellRunner executes shell command strings. Implementations never return
// errors; every failure mode is normalized into the CommandResult.
type ShellRunner interface {
	RunShellCommand(ctx context.Context, req ShellRequest) CommandResult
	RunShellCommandsParallel(ctx context.Context, reqs []ShellRequest) []CommandResult
}

// ExecutionContext bundles the runtime parameters a command needs: working
// directory, configuration, environment overrides and execution options.
// Derivation methods return new independent contexts; an ExecutionContext is
// never mutated after construction.
type ExecutionContext struct {
	Cwd            string
	Config         *config.Config
	Env            map[string]string
	DryRun         bool
	Verbose        bool
	Timeout        time.Duration
	Retries        int
	StreamCallback StreamCallback
	Runner         ShellRunner

	templateEngine *TemplateEngine
}

// ContextOption configures an ExecutionContext at construction time.
type ContextOption func(*ExecutionContext)

// WithDryRun enables dry-run mode.
func WithDryRun(dryRun bool) ContextOption {
	return func(ec *ExecutionContext) { ec.DryRun = dryRun }
}

// WithVerbose enables verbose mode.
func WithVerbose(verbose bool) ContextOption {
	return func(ec *ExecutionContext) { ec.Verbose = verbose }
}

// WithTimeout sets the default command timeout.
func WithTimeout(timeout time.Duration) ContextOption {
	return func(ec *ExecutionContext) { ec.Timeout = timeout }
}

// WithRetries sets the declared retry budget. The execution engine runs each
// invocation exactly once; retry policy belongs to an outer caller.
func WithRetries(retries int) ContextOption {
	return func(ec *ExecutionContext) { ec.Retries = retries }
}

// WithStreamCallback sets the live output callback.
func WithStreamCallback(cb StreamCallback) ContextOption {
	return func(ec *ExecutionContext) { ec.StreamCallback = cb }
}

// WithEnvOverrides sets context-level environment overrides.
func WithEnvOverrides(env map[string]string) ContextOption {
	return func(ec *ExecutionContext) {
		ec.Env = copyEnv(env)
	}
}

// WithTemplateEngine sets a custom template engine.
func WithTemplateEngine(engine *TemplateEngine) ContextOption {
	return func(ec *ExecutionContext) { ec.templateEngine = engine }
}

// WithRunner sets the shell runner commands delegate to.
func WithRunner(runner ShellRunner) ContextOption {
	return func(ec *ExecutionContext) { ec.Runner = runner }
}

// NewExecutionContext creates a context rooted at cwd. An empty cwd means
// the process working directory; relative paths are made absolute.
func NewExecutionContext(cwd string, cfg *config.Config, opts ...ContextOption) *ExecutionContext {
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		} else {
			cwd = "."
		}
	}
	if abs, err := filepath.Abs(cwd); err == nil {
		cwd = abs
	}

	ec := &ExecutionContext{
		Cwd:    cwd,
		Config: cfg,
		Env:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

// TemplateEngine returns the context's engine, creating the default one on
// first use.
func (ec *ExecutionContext) TemplateEngine() *TemplateEngine {
	if ec.templateEngine == nil {
		ec.templateEngine = NewTemplateEngine()
	}
	return ec.templateEngine
}

// ExpandTemplates expands template variables in text using the context's
// engine.
func (ec *ExecutionContext) ExpandTemplates(text string) string {
	return ec.TemplateEngine().Expand(text, ec)
}

// GetEnv returns the merged environment for a command. Merge order, later
// overriding earlier: OS environment, config profile variables (when a
// profile is named and config is present), context-level overrides.
func (ec *ExecutionContext) GetEnv(profile string) map[string]string {
	result := make(map[string]string)

	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			result[kv[:idx]] = kv[idx+1:]
		}
	}

	if profile != "" && ec.Config != nil {
		for k, v := range ec.Config.GetEnvVars(profile) {
			result[k] = v
		}
	}

	for k, v := range ec.Env {
		result[k] = v
	}

	return result
}

// ResolvePath resolves p against the context's working directory. Absolute
// paths are returned unchanged.
func (ec *ExecutionContext) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(ec.Cwd, p))
}

// ProjectName returns the configured project name, falling back to the
// working directory's base name.
func (ec *ExecutionContext) ProjectName() string {
	if ec.Config != nil && ec.Config.ProjectName != "" {
		return ec.Config.ProjectName
	}
	return baseName(ec.Cwd)
}

// ChildOverrides selects the fields a child context overrides; zero values
// inherit from the parent, except Env which merges child-over-parent.
type ChildOverrides struct {
	Cwd            string
	Env            map[string]string
	DryRun         *bool
	Verbose        *bool
	Timeout        *time.Duration
	Retries        *int
	StreamCallback StreamCallback
}

// Child derives a new independent context. Environment variables merge with
// the child's entries winning; everything else defaults to the parent unless
// explicitly overridden.
func (ec *ExecutionContext) Child(overrides ChildOverrides) *ExecutionContext {
	child := &ExecutionContext{
		Cwd:            ec.Cwd,
		Config:         ec.Config,
		Env:            copyEnv(ec.Env),
		DryRun:         ec.DryRun,
		Verbose:        ec.Verbose,
		Timeout:        ec.Timeout,
		Retries:        ec.Retries,
		StreamCallback: ec.StreamCallback,
		Runner:         ec.Runner,
		templateEngine: ec.templateEngine,
	}

	if overrides.Cwd != "" {
		child.Cwd = ec.ResolvePath(overrides.Cwd)
	}
	for k, v := range overrides.Env {
		child.Env[k] = v
	}
	if overrides.DryRun != nil {
		child.DryRun = *overrides.DryRun
	}
	if overrides.Verbose != nil {
		child.Verbose = *overrides.Verbose
	}
	if overrides.Timeout != nil {
		child.Timeout = *overrides.Timeout
	}
	if overrides.Retries != nil {
		child.Retries = *overrides.Retries
	}
	if overrides.StreamCallback != nil {
		child.StreamCallback = overrides.StreamCallback
	}

	return child
}

// WithCwd derives a new context rooted at dir, resolved against the current
// working directory when relative.
func (ec *ExecutionContext) WithCwd(dir string) *ExecutionContext {
	return ec.Child(ChildOverrides{Cwd: dir})
}

// WithEnv derives a new context with additional environment overrides.
func (ec *ExecutionContext) WithEnv(env map[string]string) *ExecutionContext {
	return ec.Child(ChildOverrides{Env: env})
}

func copyEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
