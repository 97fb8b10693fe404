// Package manifest probes project manifests (pyproject.toml, package.json)
// for name and version information used by template variables and the
// version command group.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Info holds the data extracted from a project manifest.
type Info struct {
	Path    string
	Name    string
	Version string
}

// Manifest file names probed in each directory, in priority order.
var probeNames = []string{"pyproject.toml", "package.json"}

// Find walks upwards from dir looking for a supported project manifest.
func Find(dir string) (*Info, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range probeNames {
			path := filepath.Join(current, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			info, err := parse(path)
			if err != nil {
				continue
			}
			return info, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, fmt.Errorf("no project manifest found above %s", dir)
		}
		current = parent
	}
}

// Version returns the project version for dir, or "latest" when no manifest
// declares one.
func Version(dir string) string {
	info, err := Find(dir)
	if err != nil || info.Version == "" {
		return "latest"
	}
	return info.Version
}

func parse(path string) (*Info, error) {
	switch filepath.Base(path) {
	case "pyproject.toml":
		return parsePyproject(path)
	case "package.json":
		return parsePackageJSON(path)
	default:
		return nil, fmt.Errorf("unsupported manifest: %s", path)
	}
}

func parsePyproject(path string) (*Info, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	info := &Info{Path: path}

	// PEP 621 [project] section first, then [tool.poetry].
	info.Name = v.GetString("project.name")
	info.Version = v.GetString("project.version")
	if info.Version == "" {
		info.Name = v.GetString("tool.poetry.name")
		info.Version = v.GetString("tool.poetry.version")
	}

	if info.Name == "" && info.Version == "" {
		return nil, fmt.Errorf("no project metadata in %s", path)
	}
	return info, nil
}

func parsePackageJSON(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	if pkg.Name == "" && pkg.Version == "" {
		return nil, fmt.Errorf("no project metadata in %s", path)
	}

	return &Info{Path: path, Name: pkg.Name, Version: pkg.Version}, nil
}

var semverRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// BumpVersion increments a semver string. kind is "major", "minor" or
// "patch"; anything else defaults to patch.
func BumpVersion(version, kind string) (string, error) {
	m := semverRe.FindStringSubmatch(version)
	if m == nil {
		return "", fmt.Errorf("invalid version format: %s", version)
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])

	switch kind {
	case "major":
		return fmt.Sprintf("%d.0.0", major+1), nil
	case "minor":
		return fmt.Sprintf("%d.%d.0", major, minor+1), nil
	default:
		return fmt.Sprintf("%d.%d.%d", major, minor, patch+1), nil
	}
}

var versionLineRe = regexp.MustCompile(`^(\s*"?version"?\s*[:=]\s*)(["']?)([^"',\n]+)(["']?)(,?)\s*$`)

// WriteVersion rewrites the version declaration inside the manifest file,
// preserving the rest of the file text byte for byte.
func WriteVersion(info *Info, newVersion string) error {
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return err
	}

	// Lines keep their own ending, so CRLF files stay CRLF.
	lines := strings.SplitAfter(string(data), "\n")
	replaced := false
	for i, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		ending := line[len(body):]

		m := versionLineRe.FindStringSubmatch(body)
		if m == nil || m[3] != info.Version {
			continue
		}
		lines[i] = m[1] + m[2] + newVersion + m[4] + m[5] + ending
		replaced = true
		break
	}

	if !replaced {
		return fmt.Errorf("version %s not found in %s", info.Version, info.Path)
	}

	return os.WriteFile(info.Path, []byte(strings.Join(lines, "")), 0644)
}
