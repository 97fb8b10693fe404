// Package plugins loads externally-defined command groups from YAML
// manifests. A manifest declares one group and its shell commands; dropping
// a manifest into .forge/plugins/ extends the dispatcher without touching
// its code. A manifest may instead name a discover executable whose stdout
// is the manifest, letting installed tools describe their own commands.
package plugins

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forge-cli/forge/internal/core"
	"github.com/forge-cli/forge/internal/logger"
)

// ManifestDir is the per-project plugin directory, relative to the
// workspace root.
const ManifestDir = ".forge/plugins"

// discoverTimeout bounds how long a discover executable may run.
const discoverTimeout = 10 * time.Second

// Manifest is the YAML schema for one plugin group.
type Manifest struct {
	// Group metadata. Name is required; it becomes the group id and the
	// command namespace.
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`

	// Discover, when set, is a command run through the shell whose stdout
	// replaces this manifest. Commands must be empty when Discover is set.
	Discover string `yaml:"discover"`

	Commands []ManifestCommand `yaml:"commands"`
}

// ManifestCommand declares one shell command inside a plugin group. The id
// is namespaced under the group name unless it already carries a separator.
type ManifestCommand struct {
	ID          string            `yaml:"id"`
	Shell       string            `yaml:"shell"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Cwd         string            `yaml:"cwd"`
	Env         map[string]string `yaml:"env"`
	EnvProfile  string            `yaml:"env_profile"`
	Timeout     string            `yaml:"timeout"` // duration string such as "30s" or "5m"
	Retries     int               `yaml:"retries"`
	Tags        []string          `yaml:"tags"`
	Watch       bool              `yaml:"watch"`
	Aliases     []string          `yaml:"aliases"`
}

// Loader is an alias of the registry-facing contract, re-exported so callers
// can depend on this package alone.
type Loader = core.GroupLoader

// DirLoader loads every *.yaml and *.yml manifest from a directory. One bad
// manifest is logged and skipped without affecting the others.
type DirLoader struct {
	Dir string
}

// NewDirLoader creates a loader rooted at the workspace's plugin directory.
func NewDirLoader(workspaceDir string) *DirLoader {
	return &DirLoader{Dir: filepath.Join(workspaceDir, ManifestDir)}
}

// Load reads all manifests in the directory, sorted by file name so load
// order is deterministic. A missing directory is not an error.
func (l *DirLoader) Load() ([]*core.CommandGroup, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plugin directory %s: %w", l.Dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var groups []*core.CommandGroup
	for _, name := range names {
		path := filepath.Join(l.Dir, name)
		group, err := LoadManifestFile(path)
		if err != nil {
			logger.Warn("Failed to load plugin manifest", "path", path, "error", err)
			continue
		}
		groups = append(groups, group)
		logger.Debug("Loaded plugin group", "group_id", group.ID(), "path", path)
	}

	return groups, nil
}

// LoadManifestFile parses one manifest file into a command group, following
// at most one discover indirection.
func LoadManifestFile(path string) (*core.CommandGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m, err := parseManifest(data)
	if err != nil {
		return nil, err
	}

	if m.Discover != "" {
		discovered, err := runDiscover(m.Discover, filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("discover command failed: %w", err)
		}
		m, err = parseManifest(discovered)
		if err != nil {
			return nil, fmt.Errorf("discover output is not a valid manifest: %w", err)
		}
		if m.Discover != "" {
			return nil, fmt.Errorf("discovered manifest may not chain another discover command")
		}
	}

	return m.Group()
}

func parseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// runDiscover executes the discover command and returns its stdout. Stderr
// is ignored unless the command fails.
func runDiscover(command, dir string) ([]byte, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				return nil, fmt.Errorf("%w: %s", err, msg)
			}
			return nil, err
		}
	case <-time.After(discoverTimeout):
		_ = cmd.Process.Kill()
		<-done
		return nil, fmt.Errorf("timed out after %s", discoverTimeout)
	}

	return stdout.Bytes(), nil
}

// Group converts the manifest into a registrable command group.
func (m *Manifest) Group() (*core.CommandGroup, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("manifest is missing a group name")
	}
	if len(m.Commands) == 0 {
		return nil, fmt.Errorf("manifest %q declares no commands", m.Name)
	}

	order := m.Order
	if order == 0 {
		// Plugin groups sort after all built-ins unless told otherwise.
		order = 100
	}
	group := core.NewCommandGroup(m.Name, m.Title, m.Description, order)

	for i, mc := range m.Commands {
		if mc.Shell == "" {
			return nil, fmt.Errorf("manifest %q command %d has no shell", m.Name, i)
		}

		id := mc.ID
		switch {
		case id == "":
			return nil, fmt.Errorf("manifest %q command %d has no id", m.Name, i)
		case strings.ContainsAny(id, "- "):
			// Already namespaced, keep as declared.
		default:
			id = m.Name + "-" + id
		}

		var timeout time.Duration
		if mc.Timeout != "" {
			parsed, err := time.ParseDuration(mc.Timeout)
			if err != nil || parsed < 0 {
				return nil, fmt.Errorf("manifest %q command %q has invalid timeout %q", m.Name, id, mc.Timeout)
			}
			timeout = parsed
		}

		cmd := core.NewShellCommand(id, mc.Shell)
		cmd.Desc = mc.Description
		cmd.Cwd = mc.Cwd
		cmd.Env = mc.Env
		cmd.EnvProfile = mc.EnvProfile
		cmd.Timeout = timeout
		cmd.Retries = mc.Retries
		cmd.Tags = mc.Tags
		cmd.Watch = mc.Watch
		cmd.AliasList = mc.Aliases
		if mc.Title != "" {
			cmd.CommandName = mc.Title
		}
		group.Add(cmd)
	}

	return group, nil
}
