package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_packageJSONDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"game","main":"src/Game.ts"}`)

	cfg, err := Load(root, "", Release)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "src", "Game.ts"), cfg.MainFile)
	assert.Equal(t, filepath.Join(root, "src"), cfg.SourceDir)
	assert.Equal(t, filepath.Join(root, "public", "scripts"), cfg.ScriptsDir)
	assert.Equal(t, filepath.Join(root, "public", "scripts", "game.js"), cfg.TargetPath())
	assert.Equal(t, filepath.Join(root, "public", "scripts", "game.map"), cfg.MapPath())
	assert.Equal(t, filepath.Join(root, "typings"), cfg.TypingsDir)
	assert.Equal(t, filepath.Join(root, "node_modules", "phaser"), cfg.EngineDir)
	assert.Equal(t, 140, cfg.Lint.MaxLineLength)
	assert.False(t, cfg.Lint.Enabled)

	require.Len(t, cfg.Dependencies, 2)
	assert.Equal(t, "phaser", cfg.Dependencies[0].Name)
	assert.Equal(t, filepath.Join(root, "node_modules", "phaser", "build"), cfg.FromDir(cfg.Dependencies[0]))
	assert.Equal(t, cfg.ScriptsDir, cfg.DestDir(cfg.Dependencies[0]))
	assert.Equal(t, cfg.TypingsDir, cfg.DestDir(cfg.Dependencies[1]))
}

func TestLoad_targetPathIndependentOfMode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"main":"src/Game.ts"}`)

	release, err := Load(root, "", Release)
	require.NoError(t, err)
	debug, err := Load(root, "", Debug)
	require.NoError(t, err)

	assert.Equal(t, release.TargetPath(), debug.TargetPath())
	assert.Equal(t, Debug, debug.Mode)
	assert.Equal(t, Release, release.Mode)
}

func TestLoad_yamlOverrides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"main":"src/Game.ts"}`)
	writeFile(t, filepath.Join(root, "gamekit.yaml"), `
main: app/Main.ts
target_file: bundle.js
target_dir: dist
lint:
  enabled: true
  command: ["npx", "tslint", "-p", "."]
dependencies:
  - from: vendor/engine
    dest: lib
    files: ["engine.js"]
`)

	cfg, err := Load(root, "", Debug)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "app", "Main.ts"), cfg.MainFile)
	assert.Equal(t, filepath.Join(root, "dist", "scripts", "bundle.js"), cfg.TargetPath())
	assert.Equal(t, filepath.Join(root, "dist", "scripts", "bundle.map"), cfg.MapPath())
	assert.True(t, cfg.Lint.Enabled)
	assert.Equal(t, []string{"npx", "tslint", "-p", "."}, cfg.Lint.Command)
	assert.Equal(t, 140, cfg.Lint.MaxLineLength)

	require.Len(t, cfg.Dependencies, 1)
	assert.Equal(t, "dependency-0", cfg.Dependencies[0].Name)
	assert.Equal(t, filepath.Join(root, "vendor", "engine"), cfg.FromDir(cfg.Dependencies[0]))
	assert.Equal(t, filepath.Join(root, "lib"), cfg.DestDir(cfg.Dependencies[0]))
}

func TestLoad_explicitConfigFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "conf", "build.yaml"), "main: src/Game.ts\n")

	cfg, err := Load(root, "conf/build.yaml", Release)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", "Game.ts"), cfg.MainFile)

	_, err = Load(root, "missing.yaml", Release)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_errors(t *testing.T) {
	tests := []struct {
		name    string
		pkg     string
		yaml    string
		wantErr error
	}{
		{
			name:    "no main",
			pkg:     `{"name":"game"}`,
			wantErr: ErrNoMainFile,
		},
		{
			name:    "bad target",
			pkg:     `{"main":"src/Game.ts"}`,
			yaml:    "target_file: game.ts\n",
			wantErr: ErrBadTarget,
		},
		{
			name:    "nested target",
			pkg:     `{"main":"src/Game.ts"}`,
			yaml:    "target_file: js/game.js\n",
			wantErr: ErrBadTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, filepath.Join(root, "package.json"), tt.pkg)
			if tt.yaml != "" {
				writeFile(t, filepath.Join(root, "gamekit.yaml"), tt.yaml)
			}

			_, err := Load(root, "", Release)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_invalidPackageJSON(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"main":`)

	_, err := Load(root, "", Release)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse package.json")
}

func TestModeFromDebug(t *testing.T) {
	assert.Equal(t, Debug, ModeFromDebug(true))
	assert.Equal(t, Release, ModeFromDebug(false))
	assert.Equal(t, "debug", Debug.String())
	assert.Equal(t, "release", Release.String())
	assert.True(t, Debug.IsDebug())
	assert.False(t, Release.IsDebug())
}
