package commands

import (
	"context"

	"github.com/wolfeidau/gamekit/internal/pipeline"
)

// CleanCmd empties the scripts directory.
type CleanCmd struct{}

func (c *CleanCmd) Run(ctx context.Context, globals *Globals) error {
	return runTasks(ctx, globals, pipeline.TaskClean)
}

// DependenciesCmd copies the engine build and type definitions into the project.
type DependenciesCmd struct{}

func (c *DependenciesCmd) Run(ctx context.Context, globals *Globals) error {
	return runTasks(ctx, globals, pipeline.TaskDependencies)
}

type LintCmd struct{}

func (c *LintCmd) Run(ctx context.Context, globals *Globals) error {
	return runTasks(ctx, globals, pipeline.TaskLint)
}

// CompileCmd bundles the sources into the target file.
type CompileCmd struct{}

func (c *CompileCmd) Run(ctx context.Context, globals *Globals) error {
	return runTasks(ctx, globals, pipeline.TaskCompile)
}

type BuildCmd struct{}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	return runTasks(ctx, globals, pipeline.TaskBuild)
}

type RebuildCmd struct{}

func (c *RebuildCmd) Run(ctx context.Context, globals *Globals) error {
	return runTasks(ctx, globals, pipeline.TaskRebuild)
}

// RunCmd runs any tasks by name, concurrently.
type RunCmd struct {
	Tasks []string `arg:"" help:"Task names (clean, dependencies, phaser, lint, compile, build, rebuild)"`
}

func (c *RunCmd) Run(ctx context.Context, globals *Globals) error {
	return runTasks(ctx, globals, c.Tasks...)
}
