package core

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"mvdan.cc/sh/v3/syntax"

	"github.com/forge-cli/forge/config"
	"github.com/forge-cli/forge/internal/logger"
)

// Command is the shared contract satisfied by both command variants: the
// declarative ShellCommand and the imperative CustomCommand. The registry
// and any rendering layer treat both identically through this interface.
type Command interface {
	ID() string
	Title() string
	Description() string
	GroupID() string
	SetGroupID(groupID string)
	Aliases() []string

	// Shell returns the unexpanded shell template. The second return is
	// false for commands with custom execution logic.
	Shell(ec *ExecutionContext) (string, bool)

	// Execute runs the command. It never returns an error; every failure
	// is represented in the CommandResult.
	Execute(ctx context.Context, ec *ExecutionContext) CommandResult

	// Validate performs a pre-flight check. Execute re-checks anything
	// safety-critical regardless.
	Validate(ec *ExecutionContext) error
}

// ShellCommand is the declarative Command variant: a shell template plus
// execution metadata. Retries is carried as declared data only; the engine
// runs each invocation exactly once.
type ShellCommand struct {
	CommandID   string
	ShellTmpl   string
	CommandName string
	Desc        string
	Group       string
	Cwd         string
	Env         map[string]string
	EnvProfile  string
	Timeout     time.Duration
	Retries     int
	Tags        []string
	Watch       bool
	AliasList   []string
}

// NewShellCommand creates a shell command. The title defaults to the id.
func NewShellCommand(id, shell string) *ShellCommand {
	return &ShellCommand{
		CommandID:   id,
		ShellTmpl:   shell,
		CommandName: id,
	}
}

// FromConfig builds a ShellCommand from a config-declared command. The first
// declared id is the primary id; the rest become aliases.
func FromConfig(cc config.CommandConfig) *ShellCommand {
	title := cc.Title
	if title == "" {
		title = cc.PrimaryID()
	}

	env := make(map[string]string, len(cc.Env))
	for k, v := range cc.Env {
		env[k] = v
	}

	return &ShellCommand{
		CommandID:   cc.PrimaryID(),
		ShellTmpl:   cc.Shell,
		CommandName: title,
		Desc:        cc.Description,
		Cwd:         cc.Cwd,
		Env:         env,
		EnvProfile:  cc.EnvProfile,
		Timeout:     cc.Timeout,
		Retries:     cc.Retries,
		Tags:        append([]string(nil), cc.Tags...),
		Watch:       cc.Watch,
		AliasList:   cc.AllAliases(),
	}
}

func (c *ShellCommand) ID() string                { return c.CommandID }
func (c *ShellCommand) Description() string       { return c.Desc }
func (c *ShellCommand) GroupID() string           { return c.Group }
func (c *ShellCommand) SetGroupID(groupID string) { c.Group = groupID }
func (c *ShellCommand) Aliases() []string         { return c.AliasList }

func (c *ShellCommand) Title() string {
	if c.CommandName == "" {
		return c.CommandID
	}
	return c.CommandName
}

// Shell returns the unexpanded template; expansion happens in Execute.
func (c *ShellCommand) Shell(ec *ExecutionContext) (string, bool) {
	return c.ShellTmpl, true
}

// Execute expands the template, resolves the working directory and merged
// environment, then delegates to the shell runner. Dry-run mode returns a
// synthetic result without spawning anything.
func (c *ShellCommand) Execute(ctx context.Context, ec *ExecutionContext) CommandResult {
	shell, _ := c.Shell(ec)
	expanded := ec.ExpandTemplates(shell)

	cwd := ec.Cwd
	if c.Cwd != "" {
		cwd = ec.ResolvePath(c.Cwd)
		if _, err := os.Stat(cwd); err != nil {
			logger.Warn("Working directory does not exist", "command_id", c.CommandID, "cwd", cwd)
			return NewFailureResult(c.CommandID, fmt.Sprintf("working directory does not exist: %s", cwd))
		}
	}

	// OS env < profile env < command-level env, highest last.
	env := ec.GetEnv(c.EnvProfile)
	for k, v := range c.Env {
		env[k] = v
	}

	if ec.DryRun {
		return NewDryRunResult(c.CommandID, expanded)
	}

	if ec.Runner == nil {
		return NewFailureResult(c.CommandID, "no shell runner configured")
	}

	timeout := ec.Timeout
	if c.Timeout > 0 {
		timeout = c.Timeout
	}

	return ec.Runner.RunShellCommand(ctx, ShellRequest{
		CommandID:      c.CommandID,
		Shell:          expanded,
		Cwd:            cwd,
		Env:            env,
		Timeout:        timeout,
		StreamCallback: ec.StreamCallback,
	})
}

// Validate checks the declared working directory and that the shell template
// parses as POSIX shell.
func (c *ShellCommand) Validate(ec *ExecutionContext) error {
	if c.Cwd != "" {
		cwd := ec.ResolvePath(c.Cwd)
		if _, err := os.Stat(cwd); err != nil {
			return fmt.Errorf("working directory does not exist: %s", cwd)
		}
	}

	parser := syntax.NewParser()
	if _, err := parser.Parse(strings.NewReader(c.ShellTmpl), c.CommandID); err != nil {
		return fmt.Errorf("invalid shell template: %w", err)
	}

	return nil
}

// ExecuteFunc is the imperative body of a CustomCommand.
type ExecuteFunc func(ctx context.Context, ec *ExecutionContext) CommandResult

// CustomCommand is the imperative Command variant. Its execute function may
// invoke the shell runner any number of times (tag then push, commit then
// poll) while exposing the same contract as ShellCommand.
type CustomCommand struct {
	CommandID   string
	CommandName string
	Desc        string
	Group       string
	AliasList   []string

	ExecuteFn  ExecuteFunc
	ValidateFn func(ec *ExecutionContext) error
}

// NewCustomCommand creates a custom command around an execute function.
func NewCustomCommand(id, title, description, groupID string, fn ExecuteFunc) *CustomCommand {
	if title == "" {
		title = id
	}
	return &CustomCommand{
		CommandID:   id,
		CommandName: title,
		Desc:        description,
		Group:       groupID,
		ExecuteFn:   fn,
	}
}

func (c *CustomCommand) ID() string                { return c.CommandID }
func (c *CustomCommand) Title() string             { return c.CommandName }
func (c *CustomCommand) Description() string       { return c.Desc }
func (c *CustomCommand) GroupID() string           { return c.Group }
func (c *CustomCommand) SetGroupID(groupID string) { c.Group = groupID }
func (c *CustomCommand) Aliases() []string         { return c.AliasList }

// Shell reports that custom commands have no shell template.
func (c *CustomCommand) Shell(ec *ExecutionContext) (string, bool) {
	return "", false
}

func (c *CustomCommand) Execute(ctx context.Context, ec *ExecutionContext) CommandResult {
	if c.ExecuteFn == nil {
		return NewFailureResult(c.CommandID, "custom command has no execute function")
	}
	return c.ExecuteFn(ctx, ec)
}

func (c *CustomCommand) Validate(ec *ExecutionContext) error {
	if c.ValidateFn != nil {
		return c.ValidateFn(ec)
	}
	return nil
}
