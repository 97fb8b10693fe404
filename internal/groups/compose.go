package groups

import (
	"context"
	"os"
	"path/filepath"

	"github.com/forge-cli/forge/internal/core"
)

// Compose file names probed in the working directory, in preference order.
var composeFileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

func findComposeFile(cwd string) string {
	for _, name := range composeFileNames {
		if _, err := os.Stat(filepath.Join(cwd, name)); err == nil {
			return name
		}
	}
	return "docker-compose.yml"
}

// composeAction builds a custom command that auto-detects the compose file
// at execution time, so the same command works from any project directory.
func composeAction(id, title, description, action, flags string) *core.CustomCommand {
	return core.NewCustomCommand(id, title, description, "compose",
		func(ctx context.Context, ec *core.ExecutionContext) core.CommandResult {
			shell := "docker compose -f " + findComposeFile(ec.Cwd) + " " + action
			if flags != "" {
				shell += " " + flags
			}
			return runShell(ctx, ec, id, shell)
		})
}

// ComposeGroup holds service orchestration commands.
func ComposeGroup() (*core.CommandGroup, error) {
	g := core.NewCommandGroup("compose", "Docker Compose", "Docker Compose service commands", 5)

	g.Add(
		composeAction("compose-up", "Up", "Start Docker Compose services (detached mode)", "up", "-d"),
		composeAction("compose-down", "Down", "Stop Docker Compose services", "down", ""),
		composeAction("compose-restart", "Restart", "Restart Docker Compose services", "restart", ""),
		composeAction("compose-build", "Build", "Build Docker Compose images", "build", ""),
		composeAction("compose-logs", "Logs", "Follow Docker Compose logs", "logs", "-f"),
		composeAction("compose-logs-tail", "Logs (Tail)", "Show last 100 lines of Docker Compose logs", "logs", "--tail 100"),
		composeAction("compose-ps", "Status", "List Docker Compose services", "ps", ""),
		composeAction("compose-pull", "Pull", "Pull Docker Compose images", "pull", ""),
	)

	return g, nil
}
