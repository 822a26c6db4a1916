package assets

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/gamekit/internal/project"
)

const gameSource = `import BootState from 'states/BootState';

class Game {
	private readonly states: Array<{ name: string }> = [];

	constructor(public readonly width: number, public readonly height: number) {
		this.states.push(new BootState('boot'));
	}

	describe(): string {
		return this.states.map(state => state.name).join(',') + ' ' + this.width + 'x' + this.height;
	}
}

(window as any).game = new Game(800, 600);
`

const bootSource = `export default class BootState {
	constructor(public readonly name: string) {}

	preload(): void {
		const longVariableNameForTheLoadbar = 'assets/images/loadbar.png';
		console.log(longVariableNameForTheLoadbar);
	}
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func setupProject(t *testing.T, mode project.Mode) project.Config {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "package.json"), `{"main":"src/Game.ts"}`)
	writeFile(t, filepath.Join(root, "src", "Game.ts"), gameSource)
	writeFile(t, filepath.Join(root, "src", "states", "BootState.ts"), bootSource)
	writeFile(t, filepath.Join(root, "typings", "phaser.comments.d.ts"), "declare module Phaser {}\n")
	writeFile(t, filepath.Join(root, "typings", "nested", "p2.d.ts"), "declare module p2 {}\n")

	cfg, err := project.Load(root, "", mode)
	require.NoError(t, err)
	return cfg
}

func TestBuild_debugExtractsSourceMap(t *testing.T) {
	cfg := setupProject(t, project.Debug)

	res, err := New(ConfigFor(cfg)).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, cfg.TargetPath(), res.OutFile)
	assert.Equal(t, cfg.MapPath(), res.MapFile)
	assert.NotEmpty(t, res.ID)
	assert.Len(t, res.Declarations, 2)
	assert.GreaterOrEqual(t, res.Modules, 2)

	js, err := os.ReadFile(cfg.TargetPath())
	require.NoError(t, err)
	assert.Contains(t, string(js), "longVariableNameForTheLoadbar")
	assert.True(t, strings.HasSuffix(string(js), "//# sourceMappingURL=game.map\n"))
	assert.Equal(t, len(js), res.Bytes)

	data, err := os.ReadFile(cfg.MapPath())
	require.NoError(t, err)

	var sourceMap struct {
		Version int      `json:"version"`
		Sources []string `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(data, &sourceMap))
	assert.Equal(t, 3, sourceMap.Version)
	require.NotEmpty(t, sourceMap.Sources)
	assert.Contains(t, strings.Join(sourceMap.Sources, ","), "BootState.ts")
}

func TestBuild_releaseMinifiesWithoutMap(t *testing.T) {
	cfg := setupProject(t, project.Release)

	res, err := New(ConfigFor(cfg)).Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.MapFile)

	js, err := os.ReadFile(cfg.TargetPath())
	require.NoError(t, err)
	assert.NotContains(t, string(js), "longVariableNameForTheLoadbar")
	assert.NotContains(t, string(js), "sourceMappingURL")
	assert.NoFileExists(t, cfg.MapPath())
}

func TestBuild_releaseIsNotLargerThanDebug(t *testing.T) {
	cfg := setupProject(t, project.Release)

	_, err := New(ConfigFor(cfg)).Build(context.Background())
	require.NoError(t, err)
	releaseJS, err := os.ReadFile(cfg.TargetPath())
	require.NoError(t, err)

	cfg.Mode = project.Debug
	_, err = New(ConfigFor(cfg)).Build(context.Background())
	require.NoError(t, err)
	debugJS, err := os.ReadFile(cfg.TargetPath())
	require.NoError(t, err)

	assert.LessOrEqual(t, len(releaseJS), len(debugJS))
}

func TestBuild_releaseRemovesStaleMap(t *testing.T) {
	cfg := setupProject(t, project.Debug)
	_, err := New(ConfigFor(cfg)).Build(context.Background())
	require.NoError(t, err)
	require.FileExists(t, cfg.MapPath())

	cfg.Mode = project.Release
	_, err = New(ConfigFor(cfg)).Build(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, cfg.MapPath())
}

func TestBuild_errorKeepsPreviousBundle(t *testing.T) {
	cfg := setupProject(t, project.Release)
	bundler := New(ConfigFor(cfg))

	first, err := bundler.Build(context.Background())
	require.NoError(t, err)

	before, err := os.ReadFile(cfg.TargetPath())
	require.NoError(t, err)

	writeFile(t, filepath.Join(cfg.SourceDir, "states", "BootState.ts"), "export default class BootState {\n\tpreload( {\n}\n")

	_, err = bundler.Build(context.Background())
	require.Error(t, err)

	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	require.NotEmpty(t, buildErr.Messages)
	assert.Contains(t, buildErr.Messages[0].File, "BootState.ts")
	assert.Positive(t, buildErr.Messages[0].Line)
	assert.Contains(t, err.Error(), "esbuild failed with")

	after, err := os.ReadFile(cfg.TargetPath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Same(t, first, bundler.Last())
}

func TestBuild_missingEntryPoint(t *testing.T) {
	cfg := setupProject(t, project.Release)
	require.NoError(t, os.Remove(cfg.MainFile))

	_, err := New(ConfigFor(cfg)).Build(context.Background())
	require.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestBuild_missingTypingsDir(t *testing.T) {
	cfg := setupProject(t, project.Release)
	require.NoError(t, os.RemoveAll(cfg.TypingsDir))

	res, err := New(ConfigFor(cfg)).Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Declarations)
}

func TestConfigFor(t *testing.T) {
	cfg := setupProject(t, project.Debug)

	c := ConfigFor(cfg)
	assert.True(t, c.SourceMap)
	assert.False(t, c.Minify)
	assert.Equal(t, []string{cfg.SourceDir}, c.NodePaths)

	cfg.Mode = project.Release
	c = ConfigFor(cfg)
	assert.False(t, c.SourceMap)
	assert.True(t, c.Minify)
	assert.Equal(t, cfg.TargetPath(), c.OutFile)
}

func TestConvertMessages(t *testing.T) {
	msgs := convertMessages([]api.Message{
		{Text: "Expected identifier", Location: &api.Location{File: "src/Game.ts", Line: 2, Column: 0}},
		{Text: "no location"},
	})

	require.Len(t, msgs, 2)
	assert.Equal(t, Message{File: "src/Game.ts", Line: 2, Column: 1, Text: "Expected identifier"}, msgs[0])
	assert.Equal(t, "src/Game.ts:2:1: Expected identifier", msgs[0].String())
	assert.Equal(t, "no location", msgs[1].String())
}
