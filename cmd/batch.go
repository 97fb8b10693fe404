package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forge-cli/forge/internal/core"
	"github.com/forge-cli/forge/internal/runner"
)

var batchCmd = &cobra.Command{
	Use:   "batch <command>...",
	Short: "Run several shell commands in parallel",
	Long: `Resolve each argument to a shell command and run all of them
concurrently. Results are reported in argument order once every command has
finished. Commands with custom execution logic cannot run in a batch.

Example:
  forge batch lint typecheck test`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	registry := buildRegistry(cfg)

	ec, err := newExecutionContext(cmd, cfg)
	if err != nil {
		return err
	}

	var reqs []core.ShellRequest
	for _, token := range args {
		c, ok := registry.ResolveParts([]string{token})
		if !ok {
			return fmt.Errorf("unknown command: %s", token)
		}

		shell, ok := c.Shell(ec)
		if !ok {
			return fmt.Errorf("%s has custom execution logic and cannot run in a batch", c.ID())
		}
		if err := c.Validate(ec); err != nil {
			return fmt.Errorf("%s: %w", c.ID(), err)
		}

		reqs = append(reqs, core.ShellRequest{
			CommandID:      c.ID(),
			Shell:          ec.ExpandTemplates(shell),
			Cwd:            ec.Cwd,
			Env:            ec.GetEnv(""),
			Timeout:        ec.Timeout,
			StreamCallback: ec.StreamCallback,
		})
	}

	if ec.DryRun {
		out := cmd.OutOrStdout()
		for _, req := range reqs {
			renderResult(out, core.NewDryRunResult(req.CommandID, req.Shell))
		}
		return nil
	}

	results := runner.New().RunShellCommandsParallel(cmd.Context(), reqs)

	out := cmd.OutOrStdout()
	exitCode := 0
	for _, result := range results {
		renderResult(out, result)
		if exitCode == 0 && !result.Success() {
			exitCode = result.ExitCode
		}
	}
	if exitCode != 0 {
		return &exitError{code: exitCode}
	}
	return nil
}
