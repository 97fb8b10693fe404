package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCommands(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// listCommands prints every registered group with its commands, then any
// commands outside a group (config-declared ones without a group).
func listCommands(w io.Writer) error {
	cfg, err := loadConfig(rootCmd)
	if err != nil {
		return err
	}
	registry := buildRegistry(cfg)

	groupTitle := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(w, "Available commands:")

	seen := make(map[string]bool)
	for _, group := range registry.Groups() {
		cmds := group.Commands()
		if len(cmds) == 0 {
			continue
		}

		fmt.Fprintln(w)
		if group.Description() != "" {
			fmt.Fprintf(w, "%s  %s\n", groupTitle.Sprint(group.Title()), group.Description())
		} else {
			fmt.Fprintln(w, groupTitle.Sprint(group.Title()))
		}

		for _, c := range cmds {
			if got, ok := registry.Get(c.ID()); !ok || got != c {
				// Displaced by a config command; listed as ungrouped below.
				continue
			}
			seen[c.ID()] = true
			fmt.Fprintf(w, "  %-28s %s\n", displayID(c.ID()), c.Description())
		}
	}

	var ungrouped []string
	for _, c := range registry.Commands() {
		if !seen[c.ID()] {
			ungrouped = append(ungrouped, c.ID())
		}
	}
	if len(ungrouped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, groupTitle.Sprint("Commands"))
		for _, id := range ungrouped {
			c, _ := registry.Get(id)
			fmt.Fprintf(w, "  %-28s %s\n", displayID(id), c.Description())
		}
	}

	return nil
}

// displayID renders a hyphenated id in the token form users type.
func displayID(id string) string {
	return strings.Replace(id, "-", " ", 1)
}
