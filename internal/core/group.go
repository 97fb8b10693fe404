package core

// CommandGroup organizes related commands and carries display metadata.
// Registering a group writes its id back onto every member command.
type CommandGroup struct {
	GroupID     string
	GroupTitle  string
	Desc        string
	Order       int
	commandList []Command
}

// NewCommandGroup creates a group. Lower order sorts first in listings.
func NewCommandGroup(id, title, description string, order int) *CommandGroup {
	if title == "" {
		title = id
	}
	return &CommandGroup{
		GroupID:    id,
		GroupTitle: title,
		Desc:       description,
		Order:      order,
	}
}

func (g *CommandGroup) ID() string          { return g.GroupID }
func (g *CommandGroup) Title() string       { return g.GroupTitle }
func (g *CommandGroup) Description() string { return g.Desc }

// Add appends commands to the group.
func (g *CommandGroup) Add(cmds ...Command) *CommandGroup {
	g.commandList = append(g.commandList, cmds...)
	return g
}

// Commands returns the group's commands in declaration order.
func (g *CommandGroup) Commands() []Command {
	return g.commandList
}

// Command returns the member with the given id, or nil.
func (g *CommandGroup) Command(id string) Command {
	for _, cmd := range g.commandList {
		if cmd.ID() == id {
			return cmd
		}
	}
	return nil
}

// GroupProvider constructs a command group. Built-in and plugin discovery
// load groups through providers so a single failing provider can be skipped.
type GroupProvider func() (*CommandGroup, error)
