package groups

import (
	"context"
	"fmt"

	"github.com/forge-cli/forge/internal/core"
)

// DockerGroup holds container and image management commands. Build, push
// and build_and_push are imperative orchestrators; the rest are plain shell
// commands over template variables.
func DockerGroup() (*core.CommandGroup, error) {
	g := core.NewCommandGroup("docker", "Docker", "Docker container and image commands", 4)

	g.Add(
		core.NewCustomCommand("docker-build", "Build",
			"Build Docker image with latest and version tags", "docker", dockerBuild),
		core.NewCustomCommand("docker-push", "Push",
			"Push Docker image to registry", "docker", dockerPush),
		core.NewCustomCommand("docker-build_and_push", "Build & Push",
			"Build and push Docker image to registry", "docker", dockerBuildAndPush),
		&core.ShellCommand{
			CommandID:   "docker-up",
			ShellTmpl:   "docker run -d --name {project_name} {project_name}:latest || docker start {project_name}",
			CommandName: "Up",
			Desc:        "Start Docker container",
		},
		&core.ShellCommand{
			CommandID:   "docker-down",
			ShellTmpl:   "docker stop {project_name} || echo 'Container not running'",
			CommandName: "Down",
			Desc:        "Stop Docker container",
		},
		&core.ShellCommand{
			CommandID:   "docker-restart",
			ShellTmpl:   "docker restart $(docker ps -q --filter 'name={project_name}') || echo 'No container running'",
			CommandName: "Restart",
			Desc:        "Restart Docker container",
		},
		&core.ShellCommand{
			CommandID:   "docker-logs",
			ShellTmpl:   "docker logs -f {project_name}",
			CommandName: "Logs",
			Desc:        "Follow Docker container logs",
			Watch:       true,
		},
		&core.ShellCommand{
			CommandID:   "docker-logs-tail",
			ShellTmpl:   "docker logs --tail 100 {project_name}",
			CommandName: "Logs (Tail)",
			Desc:        "Show last 100 lines of Docker container logs",
		},
	)

	return g, nil
}

// dockerBuild builds the image tagged latest, then adds a version tag when
// the project manifest declares one.
func dockerBuild(ctx context.Context, ec *core.ExecutionContext) core.CommandResult {
	const id = "docker-build"

	projectName := ec.ExpandTemplates("{project_name}")
	version := ec.ExpandTemplates("{version}")

	result := runShell(ctx, ec, id, fmt.Sprintf("docker build -t %s:latest .", projectName))
	if !result.Success() {
		return result
	}

	if version != "" && version != "latest" {
		tagResult := runShell(ctx, ec, id+"-tag",
			fmt.Sprintf("docker tag %s:latest %s:%s", projectName, projectName, version))
		return combineResults(id, result, tagResult)
	}

	return result
}

// dockerPush tags the local image for the registry and pushes latest plus
// the version tag when one exists.
func dockerPush(ctx context.Context, ec *core.ExecutionContext) core.CommandResult {
	const id = "docker-push"

	projectName := ec.ExpandTemplates("{project_name}")
	registry := ec.ExpandTemplates("{registry}")
	version := ec.ExpandTemplates("{version}")

	var results []core.CommandResult

	registryLatest := fmt.Sprintf("%s/%s:latest", registry, projectName)

	tagLatest := runShell(ctx, ec, id+"-tag-latest",
		fmt.Sprintf("docker tag %s:latest %s", projectName, registryLatest))
	results = append(results, tagLatest)
	if !tagLatest.Success() {
		return core.NewFailureResultCode(id, "failed to tag image for registry", tagLatest.ExitCode)
	}

	pushLatest := runShell(ctx, ec, id+"-push-latest", "docker push "+registryLatest)
	results = append(results, pushLatest)
	if !pushLatest.Success() {
		return core.NewFailureResultCode(id, "failed to push latest tag", pushLatest.ExitCode)
	}

	if version != "" && version != "latest" {
		registryVersion := fmt.Sprintf("%s/%s:%s", registry, projectName, version)

		results = append(results, runShell(ctx, ec, id+"-tag-version",
			fmt.Sprintf("docker tag %s:latest %s", projectName, registryVersion)))
		results = append(results, runShell(ctx, ec, id+"-push-version", "docker push "+registryVersion))
	}

	combined := combineResults(id, results...)
	if !combined.Success() && combined.Error == "" {
		combined.Error = "one or more push operations failed"
	}
	return combined
}

// dockerBuildAndPush chains build then push, stopping on build failure.
func dockerBuildAndPush(ctx context.Context, ec *core.ExecutionContext) core.CommandResult {
	const id = "docker-build_and_push"

	buildResult := dockerBuild(ctx, ec)
	if !buildResult.Success() {
		failed := combineResults(id, buildResult)
		failed.Error = "build failed: " + nonEmpty(buildResult.Error, "unknown error")
		return failed
	}

	pushResult := dockerPush(ctx, ec)
	return combineResults(id, buildResult, pushResult)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
