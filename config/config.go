package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"github.com/forge-cli/forge/internal/logger"
)

// Config represents a loaded forge configuration. It declares user-defined
// commands and groups, project defaults, and named environment profiles.
type Config struct {
	ProjectName     string
	DefaultRegistry string
	DefaultTimeout  time.Duration
	Commands        []CommandConfig
	Groups          []GroupConfig
	Environments    map[string]map[string]string

	// Populated during discovery.
	ConfigPath   string
	WorkspaceDir string
}

// CommandConfig is a single config-declared command. IDs holds the primary
// id first, followed by any additional ids that become aliases.
type CommandConfig struct {
	IDs         []string
	Shell       string
	Title       string
	Description string
	Cwd         string
	Env         map[string]string
	EnvProfile  string
	Timeout     time.Duration
	Retries     int
	Tags        []string
	Watch       bool
	Aliases     []string
}

// PrimaryID returns the first declared id.
func (c CommandConfig) PrimaryID() string {
	if len(c.IDs) == 0 {
		return ""
	}
	return c.IDs[0]
}

// AllAliases returns secondary ids plus explicitly declared aliases.
func (c CommandConfig) AllAliases() []string {
	var aliases []string
	if len(c.IDs) > 1 {
		aliases = append(aliases, c.IDs[1:]...)
	}
	aliases = append(aliases, c.Aliases...)
	return aliases
}

// GroupConfig declares a command group and its member command ids.
type GroupConfig struct {
	ID          string
	Title       string
	Description string
	Order       int
	Commands    []string
}

// GetEnvVars returns the environment variables for a named profile.
// Profile variables declared in the config file are overlaid with a
// .env.<profile> file next to the config, when one exists.
func (c *Config) GetEnvVars(profile string) map[string]string {
	result := make(map[string]string)
	if profile == "" {
		return result
	}

	for k, v := range c.Environments[profile] {
		result[k] = v
	}

	if c.WorkspaceDir != "" {
		envFile := filepath.Join(c.WorkspaceDir, ".env."+profile)
		if f, err := os.Open(envFile); err == nil {
			defer func() { _ = f.Close() }()
			if vars, err := gotenv.StrictParse(f); err == nil {
				for k, v := range vars {
					result[k] = v
				}
			} else {
				logger.Warn("Skipping malformed env file", "path", envFile, "error", err)
			}
		}
	}

	return result
}

// Config file names probed during discovery, in priority order per directory.
var discoveryNames = []string{
	".forge.toml",
	filepath.Join(".forge", "forge.toml"),
	"forge.toml",
	"forge.yaml",
}

// Discover searches upwards from start for a forge config file. When
// explicit is non-empty it is used directly and must exist.
func Discover(start, explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("config file not found: %s", abs)
		}
		return abs, nil
	}

	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = wd
	}

	current, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range discoveryNames {
			candidate := filepath.Join(current, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no forge config file found above %s", start)
		}
		current = parent
	}
}

// Load reads and validates the config file at path. TOML and YAML are
// decoded directly rather than through viper, which folds map keys to lower
// case and would corrupt environment variable names.
func Load(path string) (*Config, error) {
	raw, err := parseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := fromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.ConfigPath = path
	cfg.WorkspaceDir = workspaceDir(path)
	return cfg, nil
}

// parseFile decodes the config file into a generic map based on its
// extension.
func parseFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = toml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// LoadFrom discovers and loads the config for the directory tree containing
// start. A missing config file is not an error; it returns (nil, nil) so
// callers can fall back to built-ins only.
func LoadFrom(start string) (*Config, error) {
	path, err := Discover(start, "")
	if err != nil {
		logger.Debug("No config file discovered", "start", start)
		return nil, nil
	}
	return Load(path)
}

// workspaceDir maps a config path to the project root: a config inside a
// .forge directory belongs to that directory's parent.
func workspaceDir(configPath string) string {
	dir := filepath.Dir(configPath)
	if filepath.Base(dir) == ".forge" {
		return filepath.Dir(dir)
	}
	return dir
}

func fromMap(raw map[string]any) (*Config, error) {
	cfg := &Config{
		Environments: make(map[string]map[string]string),
	}
	cfg.ProjectName, _ = raw["project_name"].(string)
	cfg.DefaultRegistry, _ = raw["default_registry"].(string)

	if secs, ok := toInt(raw["default_timeout"]); ok && secs > 0 {
		cfg.DefaultTimeout = time.Duration(secs) * time.Second
	}

	if envs, ok := raw["environments"].(map[string]any); ok {
		for profile, vars := range envs {
			varsMap, ok := vars.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("environments.%s must be a table", profile)
			}
			cfg.Environments[profile] = make(map[string]string, len(varsMap))
			for k, v := range varsMap {
				cfg.Environments[profile][k] = fmt.Sprintf("%v", v)
			}
		}
	}

	rawCommands, ok := toList(raw["commands"])
	if !ok {
		return nil, fmt.Errorf("commands must be a list")
	}
	for i, entry := range rawCommands {
		cc, err := decodeCommand(entry)
		if err != nil {
			return nil, fmt.Errorf("commands[%d]: %w", i, err)
		}
		cfg.Commands = append(cfg.Commands, cc)
	}

	rawGroups, ok := toList(raw["groups"])
	if !ok {
		return nil, fmt.Errorf("groups must be a list")
	}
	for i, entry := range rawGroups {
		gc, err := decodeGroup(entry)
		if err != nil {
			return nil, fmt.Errorf("groups[%d]: %w", i, err)
		}
		cfg.Groups = append(cfg.Groups, gc)
	}

	return cfg, nil
}

// toList accepts an absent value or a list of any kind; go-toml decodes
// [[commands]] as []map[string]any while yaml yields []any.
func toList(v any) ([]any, bool) {
	switch list := v.(type) {
	case nil:
		return nil, true
	case []any:
		return list, true
	case []map[string]any:
		out := make([]any, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// decodeCommand accepts the id field as either a single string or a list of
// strings; the first entry is the primary id, the rest are aliases.
func decodeCommand(raw any) (CommandConfig, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return CommandConfig{}, fmt.Errorf("command entry must be a table")
	}

	var cc CommandConfig

	switch id := m["id"].(type) {
	case string:
		cc.IDs = []string{id}
	case []any:
		for _, v := range id {
			s, ok := v.(string)
			if !ok {
				return CommandConfig{}, fmt.Errorf("id list entries must be strings")
			}
			cc.IDs = append(cc.IDs, s)
		}
	case nil:
		return CommandConfig{}, fmt.Errorf("command is missing an id")
	default:
		return CommandConfig{}, fmt.Errorf("id must be a string or list of strings")
	}

	if len(cc.IDs) == 0 || cc.IDs[0] == "" {
		return CommandConfig{}, fmt.Errorf("command is missing an id")
	}

	shell, _ := m["shell"].(string)
	if shell == "" {
		return CommandConfig{}, fmt.Errorf("command %q is missing a shell", cc.IDs[0])
	}
	cc.Shell = shell

	cc.Title, _ = m["title"].(string)
	cc.Description, _ = m["description"].(string)
	cc.Cwd, _ = m["cwd"].(string)
	cc.EnvProfile, _ = m["env_profile"].(string)
	cc.Watch, _ = m["watch"].(bool)

	if secs, ok := toInt(m["timeout"]); ok && secs > 0 {
		cc.Timeout = time.Duration(secs) * time.Second
	}
	if n, ok := toInt(m["retries"]); ok {
		cc.Retries = n
	}

	if env, ok := m["env"].(map[string]any); ok {
		cc.Env = make(map[string]string, len(env))
		for k, v := range env {
			cc.Env[k] = fmt.Sprintf("%v", v)
		}
	}

	cc.Tags = toStringList(m["tags"])
	cc.Aliases = toStringList(m["aliases"])

	return cc, nil
}

func decodeGroup(raw any) (GroupConfig, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return GroupConfig{}, fmt.Errorf("group entry must be a table")
	}

	var gc GroupConfig
	gc.ID, _ = m["id"].(string)
	if gc.ID == "" {
		return GroupConfig{}, fmt.Errorf("group is missing an id")
	}

	gc.Title, _ = m["title"].(string)
	if gc.Title == "" {
		gc.Title = gc.ID
	}
	gc.Description, _ = m["description"].(string)
	if n, ok := toInt(m["order"]); ok {
		gc.Order = n
	}
	gc.Commands = toStringList(m["commands"])

	return gc, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
