package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/gamekit/internal/engine"
	"github.com/wolfeidau/gamekit/internal/game"
	"github.com/wolfeidau/gamekit/internal/game/states"
	"github.com/wolfeidau/gamekit/internal/logger"
)

const (
	width  = 800
	height = 600
)

var (
	version = "dev"
	cli     struct {
		Debug     bool    `help:"Enable debug mode."`
		Assets    string  `help:"Directory holding assets/images." default:"public" type:"existingdir" env:"GAME_ASSETS"`
		Headless  bool    `help:"Run the states without a window and exit once they settle."`
		MaxFrames int     `help:"Frame limit in headless mode." default:"600"`
		Renderer  string  `help:"Graphics library." default:"auto" enum:"auto,opengl,directx,metal"`
		Scale     float64 `help:"Window scale factor." default:"1"`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("game"),
		kong.Vars{
			"version": version,
		})
	cmd.FatalIfErrorf(run(ctx))
}

func run(ctx context.Context) error {
	log := logger.Setup(cli.Debug)
	ctx = log.WithContext(ctx)

	g := game.New(width, height, os.DirFS(cli.Assets))
	g.States.OnStateChange = func(from, to string) {
		log.Info().Str("from", from).Str("to", to).Msg("State changed")
	}
	if err := states.Register(g.States); err != nil {
		return err
	}

	if cli.Headless {
		_, err := game.RunHeadless(ctx, g, cli.MaxFrames)
		return err
	}

	renderer, err := engine.ParseRenderer(cli.Renderer)
	if err != nil {
		return err
	}

	log.Info().Str("version", version).Str("renderer", string(renderer)).Msg("Starting game")

	if err := engine.Run(g, engine.Options{Title: "gamekit", Scale: cli.Scale, Renderer: renderer}); err != nil {
		return fmt.Errorf("game stopped: %w", err)
	}
	return nil
}
