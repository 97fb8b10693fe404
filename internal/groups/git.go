package groups

import (
	"github.com/forge-cli/forge/internal/core"
)

// Default commit message for the combined stage-and-commit command.
const defaultCommitMessage = "Update"

// GitGroup holds version control shortcuts.
func GitGroup() (*core.CommandGroup, error) {
	g := core.NewCommandGroup("git", "Git", "Git version control commands", 6)

	g.Add(
		&core.ShellCommand{
			CommandID:   "git-status",
			ShellTmpl:   "git status",
			CommandName: "Status",
			Desc:        "Show working tree status",
		},
		&core.ShellCommand{
			CommandID:   "git-add",
			ShellTmpl:   "git add -A",
			CommandName: "Add All",
			Desc:        "Stage all changes",
		},
		&core.ShellCommand{
			CommandID:   "git-commit",
			ShellTmpl:   "git add -A && git commit -m '" + defaultCommitMessage + "'",
			CommandName: "Commit",
			Desc:        "Stage and commit all changes",
		},
		&core.ShellCommand{
			CommandID:   "git-push",
			ShellTmpl:   "git push",
			CommandName: "Push",
			Desc:        "Push commits to remote",
		},
		&core.ShellCommand{
			CommandID:   "git-pull",
			ShellTmpl:   "git pull",
			CommandName: "Pull",
			Desc:        "Pull changes from remote",
		},
		&core.ShellCommand{
			CommandID:   "git-log",
			ShellTmpl:   "git log --oneline -20",
			CommandName: "Log",
			Desc:        "Show recent commit history",
		},
	)

	return g, nil
}
