package core

import (
	"fmt"
	"time"
)

// CommandResult is the uniform outcome of a command execution. It is created
// by the shell runner or by command-level short-circuits (dry run, validation
// failure) and never mutated afterwards.
type CommandResult struct {
	CommandID string
	ExitCode  int
	Stdout    string
	Stderr    string
	Error     string
	Duration  time.Duration
	Metadata  map[string]any
}

// Success reports whether the command executed successfully. Success is
// strictly exit code zero; a populated Error with exit code zero still
// counts as success.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

func (r CommandResult) String() string {
	status := "OK"
	if !r.Success() {
		status = fmt.Sprintf("FAILED(%d)", r.ExitCode)
	}
	return fmt.Sprintf("CommandResult(%s: %s, %.2fs)", r.CommandID, status, r.Duration.Seconds())
}

// NewFailureResult creates a failure result with exit code 1.
func NewFailureResult(commandID, errMsg string) CommandResult {
	return NewFailureResultCode(commandID, errMsg, 1)
}

// NewFailureResultCode creates a failure result with an explicit exit code.
func NewFailureResultCode(commandID, errMsg string, exitCode int) CommandResult {
	return CommandResult{
		CommandID: commandID,
		ExitCode:  exitCode,
		Error:     errMsg,
	}
}

// NewDryRunResult creates a synthetic success result describing what would
// have run, without anything having been spawned.
func NewDryRunResult(commandID, shell string) CommandResult {
	return CommandResult{
		CommandID: commandID,
		ExitCode:  0,
		Stdout:    fmt.Sprintf("[DRY RUN] Would execute: %s", shell),
		Metadata:  map[string]any{"dry_run": true},
	}
}
