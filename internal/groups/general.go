package groups

import (
	"github.com/forge-cli/forge/internal/core"
)

// ForgeGroup holds documentation commands for the tool's own project site.
func ForgeGroup() (*core.CommandGroup, error) {
	g := core.NewCommandGroup("forge", "Forge", "Project setup, initialization and documentation", 0)

	g.Add(
		&core.ShellCommand{
			CommandID:   "docs-setup",
			ShellTmpl:   `pip install -e ".[docs]"`,
			CommandName: "Docs Setup",
			Desc:        "Install documentation dependencies",
		},
		&core.ShellCommand{
			CommandID:   "docs-preview",
			ShellTmpl:   "mkdocs serve",
			CommandName: "Docs Preview",
			Desc:        "Start local docs server for preview (http://127.0.0.1:8000)",
			Watch:       true,
		},
		&core.ShellCommand{
			CommandID:   "docs-build",
			ShellTmpl:   "mkdocs build",
			CommandName: "Docs Build",
			Desc:        "Build documentation site",
		},
		&core.ShellCommand{
			CommandID:   "docs-build-strict",
			ShellTmpl:   "mkdocs build --strict",
			CommandName: "Docs Build (Strict)",
			Desc:        "Build documentation site, failing on warnings",
		},
		&core.ShellCommand{
			CommandID:   "docs-deploy",
			ShellTmpl:   "mkdocs gh-deploy",
			CommandName: "Docs Deploy",
			Desc:        "Deploy documentation to GitHub Pages",
		},
	)

	return g, nil
}

// GeneralGroup holds project setup and installation commands.
func GeneralGroup() (*core.CommandGroup, error) {
	g := core.NewCommandGroup("general", "General", "General project setup and installation commands", 1)

	g.Add(
		&core.ShellCommand{
			CommandID:   "setup-venv",
			ShellTmpl:   "python -m venv .venv",
			CommandName: "Venv",
			Desc:        "Create virtual environment in .venv",
		},
		&core.ShellCommand{
			CommandID:   "setup-install",
			ShellTmpl:   `pip install -e '.[dev]'`,
			CommandName: "Install",
			Desc:        "Install project in development mode with dev dependencies",
		},
	)

	return g, nil
}

// QualityGroup holds linting, formatting, type checking and test commands.
func QualityGroup() (*core.CommandGroup, error) {
	g := core.NewCommandGroup("quality", "Quality", "Code quality, linting, and formatting commands", 2)

	g.Add(
		&core.ShellCommand{
			CommandID:   "lint",
			ShellTmpl:   "python -m ruff check .",
			CommandName: "Lint",
			Desc:        "Run ruff linter",
		},
		&core.ShellCommand{
			CommandID:   "format",
			ShellTmpl:   "python -m ruff format .",
			CommandName: "Format",
			Desc:        "Format code with ruff",
		},
		&core.ShellCommand{
			CommandID:   "typecheck",
			ShellTmpl:   "python -m mypy .",
			CommandName: "Type Check",
			Desc:        "Run mypy type checker",
		},
		&core.ShellCommand{
			CommandID:   "test",
			ShellTmpl:   "python -m pytest tests/",
			CommandName: "Test",
			Desc:        "Run test suite",
		},
		&core.ShellCommand{
			CommandID:   "test-cov",
			ShellTmpl:   "python -m pytest --cov --cov-report=term --cov-report=html",
			CommandName: "Test with Coverage",
			Desc:        "Run tests with coverage report",
		},
		&core.ShellCommand{
			CommandID:   "check",
			ShellTmpl:   "python -m ruff check . && python -m ruff format --check . && python -m mypy .",
			CommandName: "Quality Check",
			Desc:        "Run all quality checks (lint, format check, typecheck)",
		},
	)

	return g, nil
}

// ApplicationGroup holds application runtime commands.
func ApplicationGroup() (*core.CommandGroup, error) {
	g := core.NewCommandGroup("application", "Application", "Application run and management commands", 3)

	g.Add(
		&core.ShellCommand{
			CommandID:   "run",
			ShellTmpl:   "python -m ${project_name}",
			CommandName: "Run",
			Desc:        "Run the application",
		},
		&core.ShellCommand{
			CommandID:   "dev",
			ShellTmpl:   "python -m ${project_name}",
			CommandName: "Dev",
			Desc:        "Run in development mode",
			Env:         map[string]string{"DEBUG": "1"},
		},
	)

	return g, nil
}
