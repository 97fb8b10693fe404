//go:build windows

package runner

import "os/exec"

// shellCommand builds the platform-shell invocation for a command string.
func shellCommand(shell string) *exec.Cmd {
	return exec.Command("cmd", "/C", shell)
}
