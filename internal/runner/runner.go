// Package runner is the async shell execution engine: it spawns command
// strings as subprocesses through the platform shell, streams their output,
// enforces timeouts, and fans out parallel batches with per-slot failure
// isolation. Its contract is that it never panics or errors outward; every
// failure path is normalized into a CommandResult.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forge-cli/forge/internal/core"
	"github.com/forge-cli/forge/internal/logger"
)

// ExitCodeTimeout is the sentinel exit code for a process killed because its
// timeout elapsed, matching the conventional shell timeout(1) code.
const ExitCodeTimeout = 124

// Line buffer cap for a single output line.
const maxLineSize = 1024 * 1024

// Runner executes shell requests. The zero value is usable; DefaultTimeout
// applies when a request carries none.
type Runner struct {
	DefaultTimeout time.Duration
}

// New creates a runner with no default timeout.
func New() *Runner {
	return &Runner{}
}

// RunShellCommand executes one shell request and always returns a result:
// subprocess non-zero exit, spawn failure, and timeout all map onto the
// CommandResult rather than an error.
func (r *Runner) RunShellCommand(ctx context.Context, req core.ShellRequest) core.CommandResult {
	start := time.Now()
	runID := "run-" + uuid.New().String()[:8]

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Debug("Executing shell command",
		"command_id", req.CommandID,
		"run_id", runID,
		"shell", req.Shell,
		"cwd", req.Cwd,
		"timeout", timeout)

	cmd := shellCommand(req.Shell)
	cmd.Dir = req.Cwd
	if len(req.Env) > 0 {
		cmd.Env = envList(req.Env)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return spawnFailure(req.CommandID, runID, start, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return spawnFailure(req.CommandID, runID, start, err)
	}

	if err := cmd.Start(); err != nil {
		return spawnFailure(req.CommandID, runID, start, err)
	}

	pid := cmd.Process.Pid
	logger.Debug("Process created", "command_id", req.CommandID, "run_id", runID, "pid", pid)

	// Both streams drain concurrently; draining one to completion before
	// starting the other risks pipe back-pressure deadlock when the child
	// writes heavily to both.
	var stdoutLines, stderrLines []string
	var callbackMu sync.Mutex
	var callbackPanic any
	var drains sync.WaitGroup

	// emit runs the callback under the shared lock, capturing a panic so it
	// cannot tear down the drain goroutine. After the first panic the
	// callback is not invoked again.
	emit := func(line, stream string) {
		callbackMu.Lock()
		defer callbackMu.Unlock()
		if callbackPanic != nil {
			return
		}
		defer func() {
			if p := recover(); p != nil {
				callbackPanic = p
			}
		}()
		req.StreamCallback(fmt.Sprintf("[%s] %s", req.CommandID, line), stream)
	}

	drain := func(pipe io.Reader, stream string, lines *[]string) {
		defer drains.Done()

		scanner := bufio.NewScanner(pipe)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := scanner.Text()
			*lines = append(*lines, line)
			if req.StreamCallback != nil {
				emit(line, stream)
			}
		}
		// Keep the pipe drained even if scanning stops on an oversized
		// line, so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, pipe)
	}

	drains.Add(2)
	go drain(stdoutPipe, "stdout", &stdoutLines)
	go drain(stderrPipe, "stderr", &stderrLines)

	waitCh := make(chan error, 1)
	go func() {
		drains.Wait()
		waitCh <- cmd.Wait()
	}()

	var waitErr error
	timedOut := false
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		timedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		// Killing closes the pipes, which unblocks the drains and Wait.
		waitErr = <-waitCh
	}

	duration := time.Since(start)
	stdout := strings.Join(stdoutLines, "\n")
	stderr := strings.Join(stderrLines, "\n")
	metadata := map[string]any{"run_id": runID, "pid": pid}

	if callbackPanic != nil {
		logger.Error("Stream callback panicked",
			"command_id", req.CommandID,
			"run_id", runID,
			"panic", callbackPanic)
		return core.CommandResult{
			CommandID: req.CommandID,
			ExitCode:  1,
			Stdout:    stdout,
			Stderr:    stderr,
			Error:     fmt.Sprintf("stream callback panicked: %v", callbackPanic),
			Duration:  duration,
			Metadata:  metadata,
		}
	}

	if timedOut {
		logger.Warn("Command timed out",
			"command_id", req.CommandID,
			"run_id", runID,
			"timeout", timeout)
		return core.CommandResult{
			CommandID: req.CommandID,
			ExitCode:  ExitCodeTimeout,
			Stdout:    stdout,
			Stderr:    stderr,
			Error:     fmt.Sprintf("command timed out after %s", timeout),
			Duration:  duration,
			Metadata:  metadata,
		}
	}

	exitCode := 0
	errMsg := ""
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 1
		}
		errMsg = waitErr.Error()
	}

	if ctx.Err() != nil && !timedOut {
		// Parent context canceled mid-run; the kill above already fired.
		exitCode = 1
		errMsg = "command canceled"
	}

	logger.Debug("Command completed",
		"command_id", req.CommandID,
		"run_id", runID,
		"exit_code", exitCode,
		"duration", duration,
		"stdout_lines", len(stdoutLines),
		"stderr_lines", len(stderrLines))

	return core.CommandResult{
		CommandID: req.CommandID,
		ExitCode:  exitCode,
		Stdout:    stdout,
		Stderr:    stderr,
		Error:     errMsg,
		Duration:  duration,
		Metadata:  metadata,
	}
}

// RunShellCommandsParallel executes every request as an independent
// concurrent task and returns results in input order regardless of
// completion order. A panic in one slot becomes that slot's failure result
// and never affects sibling results.
func (r *Runner) RunShellCommandsParallel(ctx context.Context, reqs []core.ShellRequest) []core.CommandResult {
	results := make([]core.CommandResult, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req core.ShellRequest) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					logger.Error("Command execution panicked",
						"command_id", req.CommandID,
						"panic", p)
					results[i] = core.NewFailureResult(req.CommandID, fmt.Sprintf("panic: %v", p))
				}
			}()
			results[i] = r.RunShellCommand(ctx, req)
		}(i, req)
	}
	wg.Wait()

	return results
}

func spawnFailure(commandID, runID string, start time.Time, err error) core.CommandResult {
	logger.Error("Failed to spawn command", "command_id", commandID, "run_id", runID, "error", err)
	return core.CommandResult{
		CommandID: commandID,
		ExitCode:  1,
		Error:     fmt.Sprintf("command execution failed: %v", err),
		Duration:  time.Since(start),
		Metadata:  map[string]any{"run_id": runID},
	}
}

func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	return list
}
