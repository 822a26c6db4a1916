package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/gamekit/cmd/gamekit/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug     bool   `help:"Build in debug mode: unminified with a source map." env:"GAMEKIT_DEBUG"`
		Project   string `help:"Project directory." default:"." type:"existingdir" env:"GAMEKIT_PROJECT"`
		Config    string `help:"Config file, relative to the project (default: gamekit.yaml when present)." env:"GAMEKIT_CONFIG"`
		Telemetry bool   `help:"Export metrics and traces over OTLP." env:"GAMEKIT_TELEMETRY"`
		Version   kong.VersionFlag

		Clean        commands.CleanCmd        `cmd:"" help:"Empty the scripts directory"`
		Dependencies commands.DependenciesCmd `cmd:"" aliases:"phaser" help:"Copy engine files and type definitions"`
		Lint         commands.LintCmd         `cmd:"" help:"Lint the TypeScript sources"`
		Compile      commands.CompileCmd      `cmd:"" help:"Bundle the sources into the target file"`
		Build        commands.BuildCmd        `cmd:"" help:"Install dependencies (and lint when enabled), then compile"`
		Rebuild      commands.RebuildCmd      `cmd:"" help:"Clean, then build"`
		Serve        commands.ServeCmd        `cmd:"" default:"withargs" aliases:"watch" help:"Rebuild, serve with live reload and recompile on change"`
		Run          commands.RunCmd          `cmd:"" help:"Run tasks by name"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	// External tools such as the configured linter run from the project root.
	cmd.FatalIfErrorf(os.Chdir(cli.Project))

	err := cmd.Run(&commands.Globals{
		Debug:     cli.Debug,
		Project:   ".",
		Config:    cli.Config,
		Telemetry: cli.Telemetry,
		Version:   version,
	})
	cmd.FatalIfErrorf(err)
}
