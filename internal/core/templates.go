package core

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/forge-cli/forge/internal/logger"
	"github.com/forge-cli/forge/internal/manifest"
)

// VariableResolver produces the value for a template variable.
type VariableResolver func(ctx *ExecutionContext) (string, error)

// DefaultRegistryFallback is used for the {registry} variable when neither
// the config nor the context provides a docker registry.
const DefaultRegistryFallback = "localhost:5000"

// TemplateEngine expands {var} and ${var} patterns in shell templates.
// Variables are resolved lazily through registered resolver functions: only
// names actually referenced by the text are resolved, and each at most once
// per expansion.
type TemplateEngine struct {
	resolvers map[string]VariableResolver
}

// NewTemplateEngine creates an engine with the default variables registered:
// project_name, registry, version, cwd and workspace.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		resolvers: make(map[string]VariableResolver),
	}
	e.registerDefaults()
	return e
}

func (e *TemplateEngine) registerDefaults() {
	e.Register("project_name", func(ctx *ExecutionContext) (string, error) {
		return ctx.ProjectName(), nil
	})

	e.Register("registry", func(ctx *ExecutionContext) (string, error) {
		if ctx.Config != nil && ctx.Config.DefaultRegistry != "" {
			return ctx.Config.DefaultRegistry, nil
		}
		return DefaultRegistryFallback, nil
	})

	e.Register("version", func(ctx *ExecutionContext) (string, error) {
		return manifest.Version(ctx.Cwd), nil
	})

	e.Register("cwd", func(ctx *ExecutionContext) (string, error) {
		return ctx.Cwd, nil
	})

	e.Register("workspace", func(ctx *ExecutionContext) (string, error) {
		if ctx.Config != nil && ctx.Config.WorkspaceDir != "" {
			return ctx.Config.WorkspaceDir, nil
		}
		return ctx.Cwd, nil
	})
}

// Register adds or replaces a variable resolver.
func (e *TemplateEngine) Register(name string, resolver VariableResolver) {
	e.resolvers[name] = resolver
}

// Unregister removes a variable. It reports whether the variable existed.
func (e *TemplateEngine) Unregister(name string) bool {
	if _, ok := e.resolvers[name]; !ok {
		return false
	}
	delete(e.resolvers, name)
	return true
}

// Has reports whether a variable is registered.
func (e *TemplateEngine) Has(name string) bool {
	_, ok := e.resolvers[name]
	return ok
}

// Variables returns the registered variable names.
func (e *TemplateEngine) Variables() []string {
	names := make([]string, 0, len(e.resolvers))
	for name := range e.resolvers {
		names = append(names, name)
	}
	return names
}

// Resolve resolves a single variable. It returns ("", false) when the
// variable is unknown or its resolver fails.
func (e *TemplateEngine) Resolve(name string, ctx *ExecutionContext) (string, bool) {
	resolver, ok := e.resolvers[name]
	if !ok {
		return "", false
	}
	value, err := resolver(ctx)
	if err != nil {
		return "", false
	}
	return value, true
}

var variableRe = regexp.MustCompile(`\$\{(\w+)\}|\{(\w+)\}`)

// FindVariables returns the distinct variable names referenced by text, in
// order of first appearance.
func (e *TemplateEngine) FindVariables(text string) []string {
	var names []string
	seen := make(map[string]bool)

	for _, m := range variableRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Expand replaces every registered variable referenced by text with its
// resolved value, covering both {name} and ${name} syntax. A resolver
// failure leaves only that variable's patterns unexpanded; unknown variable
// patterns are left byte-for-byte unchanged.
func (e *TemplateEngine) Expand(text string, ctx *ExecutionContext) string {
	result := text

	for _, name := range e.FindVariables(text) {
		resolver, ok := e.resolvers[name]
		if !ok {
			continue
		}

		value, err := resolver(ctx)
		if err != nil {
			logger.Warn("Template variable resolution failed", "variable", name, "error", err)
			continue
		}

		// ${name} first: it contains {name} as a substring, so the
		// reverse order would leave a stray "$" behind.
		result = strings.ReplaceAll(result, "${"+name+"}", value)
		result = strings.ReplaceAll(result, "{"+name+"}", value)
	}

	return result
}

// ExpandStrict expands like Expand but fails when text references variables
// with no registered resolver, listing every offending name.
func (e *TemplateEngine) ExpandStrict(text string, ctx *ExecutionContext) (string, error) {
	var unknown []string
	for _, name := range e.FindVariables(text) {
		if !e.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return "", fmt.Errorf("unknown template variables: %s", strings.Join(unknown, ", "))
	}
	return e.Expand(text, ctx), nil
}

// baseName is a small helper shared by the default resolvers.
func baseName(path string) string {
	return filepath.Base(filepath.Clean(path))
}
