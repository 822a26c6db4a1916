package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/gamekit/internal/assets"
	"github.com/wolfeidau/gamekit/internal/deps"
	"github.com/wolfeidau/gamekit/internal/lint"
	"github.com/wolfeidau/gamekit/internal/project"
)

// Task names of the standard pipeline.
const (
	TaskClean        = "clean"
	TaskDependencies = "dependencies"
	TaskPhaser       = "phaser"
	TaskLint         = "lint"
	TaskCompile      = "compile"
	TaskBuild        = "build"
	TaskRebuild      = "rebuild"
)

// Pipeline is the standard task set for one project configuration.
type Pipeline struct {
	*Runner
	Config  project.Config
	Bundler *assets.Bundler
}

// New registers clean, dependencies (alias phaser), lint, compile, build and
// rebuild for cfg. Lint only runs as part of build when enabled in cfg.
func New(cfg project.Config) (*Pipeline, error) {
	p := &Pipeline{
		Runner:  NewRunner(),
		Config:  cfg,
		Bundler: assets.New(assets.ConfigFor(cfg)),
	}

	buildDeps := []string{TaskDependencies}
	if cfg.Lint.Enabled {
		buildDeps = append(buildDeps, TaskLint)
	}

	tasks := []Task{
		{Name: TaskClean, Run: p.clean},
		{Name: TaskDependencies, Run: p.dependencies},
		{Name: TaskLint, Run: p.lint},
		{Name: TaskCompile, Run: p.compile},
		{Name: TaskBuild, Deps: buildDeps, Run: p.Series(TaskCompile)},
		{Name: TaskRebuild, Run: p.Series(TaskClean, TaskBuild)},
	}
	for _, t := range tasks {
		if err := p.Register(t); err != nil {
			return nil, err
		}
	}
	if err := p.Alias(TaskPhaser, TaskDependencies); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Pipeline) clean(ctx context.Context) error {
	removed, err := Clean(p.Config.ScriptsDir)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("dir", p.Config.ScriptsDir).Int("removed", removed).Msg("Cleaned scripts")
	return nil
}

func (p *Pipeline) dependencies(ctx context.Context) error {
	_, err := deps.Install(ctx, p.Config)
	return err
}

func (p *Pipeline) lint(ctx context.Context) error {
	report, err := lint.Run(ctx, p.Config)
	if err != nil {
		return err
	}
	if p.Config.Lint.Fatal {
		return report.Err()
	}
	return nil
}

func (p *Pipeline) compile(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	if p.Config.Mode.IsDebug() {
		log.Info().Msg("Compiling DEBUG application...")
	} else {
		log.Info().Msg("Compiling RELEASE application...")
	}

	_, err := p.Bundler.Build(ctx)
	return err
}

// Clean removes everything inside dir and keeps dir itself. A missing dir
// is already clean.
func Clean(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return 0, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
	}
	return len(entries), nil
}
