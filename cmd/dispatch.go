package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forge-cli/forge/config"
	"github.com/forge-cli/forge/internal/core"
	"github.com/forge-cli/forge/internal/groups"
	"github.com/forge-cli/forge/internal/logger"
	"github.com/forge-cli/forge/internal/plugins"
	"github.com/forge-cli/forge/internal/runner"
)

// buildRegistry assembles the full registry: built-in groups first, then
// plugin manifests, then config commands which override anything registered
// before them.
func buildRegistry(cfg *config.Config) *core.Registry {
	registry := core.NewRegistry()
	registry.DiscoverBuiltinGroups(groups.Builtins())

	workspace := ""
	if cfg != nil {
		workspace = cfg.WorkspaceDir
	} else if wd, err := os.Getwd(); err == nil {
		workspace = wd
	}
	if workspace != "" {
		registry.DiscoverPlugins(plugins.NewDirLoader(workspace))
	}

	registry.LoadFromConfig(cfg)
	return registry
}

// resolveTokens maps CLI tokens onto registered commands, preferring the
// longest match: a two-token pair is tried before a single token, so
// "docker build test" resolves docker-build then the test command.
func resolveTokens(registry *core.Registry, tokens []string) ([]core.Command, error) {
	var commands []core.Command

	i := 0
	for i < len(tokens) {
		if i+1 < len(tokens) {
			if cmd, ok := registry.ResolveParts(tokens[i : i+2]); ok {
				commands = append(commands, cmd)
				i += 2
				continue
			}
		}
		cmd, ok := registry.ResolveParts(tokens[i : i+1])
		if !ok {
			return nil, fmt.Errorf("unknown command: %s", tokens[i])
		}
		commands = append(commands, cmd)
		i++
	}

	return commands, nil
}

// newExecutionContext builds the context shared by all dispatched commands
// from the CLI flags and loaded config.
func newExecutionContext(cmd *cobra.Command, cfg *config.Config) (*core.ExecutionContext, error) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	profile, _ := cmd.Flags().GetString("profile")
	envPairs, _ := cmd.Flags().GetStringArray("env")

	overrides, err := parseEnvOverrides(envPairs)
	if err != nil {
		return nil, err
	}

	env := make(map[string]string)
	if profile != "" {
		if cfg == nil {
			return nil, fmt.Errorf("--profile %s requires a config file", profile)
		}
		for k, v := range cfg.GetEnvVars(profile) {
			env[k] = v
		}
	}
	for k, v := range overrides {
		env[k] = v
	}

	if bumpKind := bumpKindFlag(cmd); bumpKind != "" {
		env[groups.BumpKindEnvVar] = bumpKind
	}
	if repository, _ := cmd.Flags().GetString("repository"); repository != "" {
		env[groups.PyPIRepositoryEnvVar] = repository
	}

	cwd := ""
	if cfg != nil {
		cwd = cfg.WorkspaceDir
	}
	if timeout == 0 && cfg != nil {
		timeout = cfg.DefaultTimeout
	}

	return core.NewExecutionContext(cwd, cfg,
		core.WithDryRun(dryRun),
		core.WithVerbose(verbose),
		core.WithTimeout(timeout),
		core.WithEnvOverrides(env),
		core.WithStreamCallback(streamCallback),
		core.WithRunner(runner.New()),
	), nil
}

func bumpKindFlag(cmd *cobra.Command) string {
	for _, kind := range []string{"major", "minor", "patch"} {
		if set, _ := cmd.Flags().GetBool(kind); set {
			return kind
		}
	}
	return ""
}

var stderrColor = color.New(color.FgRed)

// streamCallback echoes live command output, stderr lines in red.
func streamCallback(line, stream string) {
	if stream == "stderr" {
		stderrColor.Fprintln(os.Stderr, line)
		return
	}
	fmt.Println(line)
}

// dispatch resolves the tokens and runs the resolved commands in sequence,
// stopping at the first failure. The process exit code is the first failing
// command's exit code.
func dispatch(cmd *cobra.Command, tokens []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	registry := buildRegistry(cfg)

	commands, err := resolveTokens(registry, tokens)
	if err != nil {
		return err
	}

	ec, err := newExecutionContext(cmd, cfg)
	if err != nil {
		return err
	}

	for _, c := range commands {
		if err := c.Validate(ec); err != nil {
			return fmt.Errorf("%s: %w", c.ID(), err)
		}
	}

	out := cmd.OutOrStdout()
	for _, c := range commands {
		logger.Debug("Executing command", "command_id", c.ID())
		result := c.Execute(cmd.Context(), ec)
		renderResult(out, result)

		if !result.Success() {
			return &exitError{code: result.ExitCode}
		}
	}

	return nil
}

// renderResult prints one command result. Output from a streaming shell run
// already went to the terminal live and is not repeated; custom and dry-run
// results only buffered theirs, so it is printed here.
func renderResult(w io.Writer, result core.CommandResult) {
	if result.Stdout != "" && !streamed(result) {
		fmt.Fprintln(w, result.Stdout)
	}

	if result.Success() {
		fmt.Fprintf(w, "%s %s (%s)\n", color.GreenString("OK"), result.CommandID, result.Duration.Round(time.Millisecond))
		return
	}

	if result.Error != "" {
		stderrColor.Fprintf(os.Stderr, "Error: %s\n", result.Error)
	}
	fmt.Fprintf(w, "%s %s (exit %d)\n", color.RedString("FAILED"), result.CommandID, result.ExitCode)
}

// streamed reports whether the result came from a streaming shell run, as
// opposed to a custom command that only buffered its output.
func streamed(result core.CommandResult) bool {
	_, ok := result.Metadata["run_id"]
	return ok
}
