package cmd

import "fmt"

// Build metadata, overridden at link time. The CLI version is exposed as
// --version rather than a subcommand so the "version" token stays free for
// the version command group (forge version bump).
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"forge version %s\ncommit: %s\nbuilt at: %s\n", version, commit, date))
}
