//go:build !windows

package runner

import "os/exec"

// shellCommand builds the platform-shell invocation for a command string.
// The string goes through the shell rather than a raw argv vector because
// configured commands may contain pipes, && chains, or redirection.
func shellCommand(shell string) *exec.Cmd {
	return exec.Command("sh", "-c", shell)
}
