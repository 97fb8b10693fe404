package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forge-cli/forge/config"
	"github.com/forge-cli/forge/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "forge [command]...",
	Short: "A project-configurable command dispatcher for common dev workflows",
	Long: `Forge resolves short command tokens against built-in command groups,
plugin manifests and the project config file, then runs the resolved
shell commands with live output streaming.

Examples:
  forge docker build        Run the docker-build command
  forge d build             Same, using the namespace alias
  forge docker bp           Build and push in one step
  forge version bump --minor
  forge test lint           Run multiple commands in sequence`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Assigned in init to avoid an initialization cycle between rootCmd and
// listCommands, which refers back to rootCmd.
func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listCommands(cmd.OutOrStdout())
		}
		return dispatch(cmd, args)
	}
}

// Execute runs the CLI and exits with the first failing command's exit code.
func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		code := 1
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			code = exitErr.code
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(code)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default: discovered upward from cwd)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("dry-run", false, "print what would run without executing")
	flags.Duration("timeout", 0, "default command timeout (e.g. 30s, 5m)")
	flags.String("profile", "", "environment profile to apply")
	flags.StringArray("env", nil, "environment override KEY=VALUE (repeatable)")

	rootCmd.Flags().Bool("major", false, "bump the major version (version bump)")
	rootCmd.Flags().Bool("minor", false, "bump the minor version (version bump)")
	rootCmd.Flags().Bool("patch", false, "bump the patch version (version bump)")
	rootCmd.Flags().String("repository", "", "target repository for pypi push")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	logger.Init(verbose)
}

// loadConfig discovers and loads the project config. An explicit --config
// path must exist; an absent discovered config is fine.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	if explicit != "" {
		path, err := config.Discover("", explicit)
		if err != nil {
			return nil, err
		}
		return config.Load(path)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.LoadFrom(wd)
}

// parseEnvOverrides parses repeated --env KEY=VALUE flags.
func parseEnvOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		idx := strings.IndexByte(pair, '=')
		if idx <= 0 {
			return nil, fmt.Errorf("invalid --env value %q, expected KEY=VALUE", pair)
		}
		env[pair[:idx]] = pair[idx+1:]
	}
	return env, nil
}

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
