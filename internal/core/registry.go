package core

import (
	"sort"
	"strings"
	"sync"

	"github.com/forge-cli/forge/config"
	"github.com/forge-cli/forge/internal/logger"
)

// Registry is the command resolution registry: it indexes commands, groups,
// aliases and namespaces, and resolves CLI tokens to a single Command.
//
// A Registry instance is owned by its creator and passed by reference; there
// is no package-level singleton. Mutation (Register, LoadFromConfig) must
// finish before concurrent command execution begins.
type Registry struct {
	mutex sync.RWMutex

	commands     map[string]Command
	groups       map[string]*CommandGroup
	aliases      map[string]string   // alias -> primary id
	namespaceMap map[string][]string // namespace -> command ids

	// Shorthand tables kept alongside the command index so alias targets
	// stay in lockstep with registration.
	namespaceAliases map[string]string
	actionAliases    map[string]string
}

// NewRegistry creates an empty registry seeded with the conventional
// namespace and action shorthand tables.
func NewRegistry() *Registry {
	r := &Registry{
		commands:         make(map[string]Command),
		groups:           make(map[string]*CommandGroup),
		aliases:          make(map[string]string),
		namespaceMap:     make(map[string][]string),
		namespaceAliases: make(map[string]string),
		actionAliases:    make(map[string]string),
	}

	for alias, target := range map[string]string{
		"d":   "docker",
		"c":   "compose",
		"g":   "git",
		"v":   "version",
		"q":   "quality",
		"a":   "application",
		"app": "application",
		"p":   "pypi",
	} {
		r.namespaceAliases[alias] = target
	}
	r.actionAliases["bp"] = "build_and_push"

	return r
}

// Register inserts or overwrites a command by id, indexes its namespace when
// the id is hyphenated, and registers its aliases.
func (r *Registry) Register(cmd Command) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.register(cmd)
}

func (r *Registry) register(cmd Command) {
	id := cmd.ID()
	if _, exists := r.commands[id]; exists {
		logger.Debug("Overwriting existing command", "command_id", id)
	}
	r.commands[id] = cmd

	if idx := strings.Index(id, "-"); idx > 0 {
		namespace := id[:idx]
		if !contains(r.namespaceMap[namespace], id) {
			r.namespaceMap[namespace] = append(r.namespaceMap[namespace], id)
		}
	}

	for _, alias := range cmd.Aliases() {
		r.aliases[alias] = id
	}
}

// RegisterAlias maps an alias onto an already-registered command id.
func (r *Registry) RegisterAlias(alias, commandID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.commands[commandID]; !ok {
		return &UnknownCommandError{ID: commandID}
	}
	r.aliases[alias] = commandID
	return nil
}

// RegisterNamespaceAlias maps a namespace shorthand ("d") onto a namespace
// ("docker") for token resolution.
func (r *Registry) RegisterNamespaceAlias(alias, namespace string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.namespaceAliases[alias] = namespace
}

// RegisterActionAlias maps an action shorthand ("bp") onto an action name
// ("build_and_push") for token resolution.
func (r *Registry) RegisterActionAlias(alias, action string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.actionAliases[alias] = action
}

// RegisterGroup stores the group, writes its id onto each member command and
// registers every member.
func (r *Registry) RegisterGroup(group *CommandGroup) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.groups[group.ID()] = group
	for _, cmd := range group.Commands() {
		cmd.SetGroupID(group.ID())
		r.register(cmd)
	}
}

// LoadFromConfig registers every config-declared command. A config command
// whose primary id collides with a registered command purges the existing
// entry first, including any alias or namespace entry pointing at it:
// configuration always wins over built-ins with no orphans left behind.
func (r *Registry) LoadFromConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, cc := range cfg.Commands {
		primaryID := cc.PrimaryID()
		if primaryID == "" {
			continue
		}

		if _, exists := r.commands[primaryID]; exists {
			r.purge(primaryID)
			logger.Debug("Config command overrides built-in", "command_id", primaryID)
		}

		r.register(FromConfig(cc))
	}
}

// purge removes a command and every index entry pointing at it.
func (r *Registry) purge(id string) {
	delete(r.commands, id)

	for alias, target := range r.aliases {
		if target == id {
			delete(r.aliases, alias)
		}
	}

	for namespace, ids := range r.namespaceMap {
		for i, cid := range ids {
			if cid == id {
				r.namespaceMap[namespace] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
}

// Get looks up a command by id or alias.
func (r *Registry) Get(idOrAlias string) (Command, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.get(idOrAlias)
}

func (r *Registry) get(idOrAlias string) (Command, bool) {
	if primary, ok := r.aliases[idOrAlias]; ok {
		idOrAlias = primary
	}
	cmd, ok := r.commands[idOrAlias]
	return cmd, ok
}

// ResolveParts resolves CLI tokens to a command. Commands are registered
// under two id conventions (hyphen and space), and user shorthand must
// resolve identically regardless of which convention the target uses:
//
//	["docker", "build"]  -> "docker-build"
//	["d", "build"]       -> "docker-build"
//	["docker", "bp"]     -> "docker-build_and_push"
//	["version", "show"]  -> "version show"
//	["quality", "test"]  -> "test" (member of the quality group)
func (r *Registry) ResolveParts(parts []string) (Command, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if len(parts) == 0 {
		return nil, false
	}

	parts = append([]string(nil), parts...)
	if namespace, ok := r.namespaceAliases[parts[0]]; ok {
		parts[0] = namespace
	}
	if len(parts) >= 2 {
		if action, ok := r.actionAliases[parts[1]]; ok {
			parts[1] = action
		}
	}

	if len(parts) == 1 {
		if cmd, ok := r.get(parts[0]); ok {
			return cmd, true
		}
	}

	if cmd, ok := r.get(strings.Join(parts, "-")); ok {
		return cmd, true
	}

	if len(parts) >= 2 {
		namespace, action := parts[0], parts[1]

		if cmd, ok := r.get(namespace + "-" + action); ok {
			return cmd, true
		}
		if cmd, ok := r.get(namespace + " " + action); ok {
			return cmd, true
		}

		if group, ok := r.groups[namespace]; ok {
			for _, cmd := range group.Commands() {
				if matchesAction(cmd.ID(), action) {
					return cmd, true
				}
			}
		}
	}

	return nil, false
}

// matchesAction reports whether a command id equals the action exactly, or
// whose suffix after its own first hyphen or first space equals it.
func matchesAction(id, action string) bool {
	if id == action {
		return true
	}
	if idx := strings.Index(id, "-"); idx >= 0 && id[idx+1:] == action {
		return true
	}
	if idx := strings.Index(id, " "); idx >= 0 && id[idx+1:] == action {
		return true
	}
	return false
}

// DiscoverBuiltinGroups loads the given ordered provider list. A provider
// that fails is logged and skipped; the rest still load. It returns the ids
// of the groups that loaded.
func (r *Registry) DiscoverBuiltinGroups(providers []GroupProvider) []string {
	var loaded []string

	for _, provider := range providers {
		group, err := provider()
		if err != nil {
			logger.Warn("Failed to load builtin group", "error", err)
			continue
		}
		r.RegisterGroup(group)
		loaded = append(loaded, group.ID())
		logger.Debug("Loaded builtin group", "group_id", group.ID())
	}

	return loaded
}

// GroupLoader yields externally-defined command groups; implementations live
// outside this package (plugin manifests, shell-out discovery).
type GroupLoader interface {
	Load() ([]*CommandGroup, error)
}

// DiscoverPlugins loads external groups through the loader, best effort: a
// loader failure aborts nothing already registered, and each group registers
// independently.
func (r *Registry) DiscoverPlugins(loader GroupLoader) []string {
	if loader == nil {
		return nil
	}

	groups, err := loader.Load()
	if err != nil {
		logger.Warn("Plugin discovery failed", "error", err)
	}

	var loaded []string
	for _, group := range groups {
		r.RegisterGroup(group)
		loaded = append(loaded, group.ID())
		logger.Debug("Loaded plugin group", "group_id", group.ID())
	}
	return loaded
}

// Commands returns all registered commands sorted by id.
func (r *Registry) Commands() []Command {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].ID() < cmds[j].ID() })
	return cmds
}

// Groups returns all registered groups sorted by order, then id.
func (r *Registry) Groups() []*CommandGroup {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	groups := make([]*CommandGroup, 0, len(r.groups))
	for _, group := range r.groups {
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Order != groups[j].Order {
			return groups[i].Order < groups[j].Order
		}
		return groups[i].ID() < groups[j].ID()
	})
	return groups
}

// CommandsByGroup returns the commands of a registered group.
func (r *Registry) CommandsByGroup(groupID string) []Command {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	group, ok := r.groups[groupID]
	if !ok {
		return nil
	}
	return group.Commands()
}

// CommandsByNamespace returns the commands whose hyphenated ids share the
// namespace prefix.
func (r *Registry) CommandsByNamespace(namespace string) []Command {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var cmds []Command
	for _, id := range r.namespaceMap[namespace] {
		if cmd, ok := r.commands[id]; ok {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// Namespaces returns all known namespaces sorted.
func (r *Registry) Namespaces() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	namespaces := make([]string, 0, len(r.namespaceMap))
	for namespace := range r.namespaceMap {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)
	return namespaces
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.commands)
}

// Contains reports whether an id or alias is registered.
func (r *Registry) Contains(idOrAlias string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if _, ok := r.commands[idOrAlias]; ok {
		return true
	}
	_, ok := r.aliases[idOrAlias]
	return ok
}

// Clear removes everything except the shorthand tables. Intended for
// isolated test runs.
func (r *Registry) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.commands = make(map[string]Command)
	r.groups = make(map[string]*CommandGroup)
	r.aliases = make(map[string]string)
	r.namespaceMap = make(map[string][]string)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// UnknownCommandError reports an alias registration against a missing id.
type UnknownCommandError struct {
	ID string
}

func (e *UnknownCommandError) Error() string {
	return "cannot alias unknown command: " + e.ID
}
