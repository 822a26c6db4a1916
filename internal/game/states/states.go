// Package states holds the three states of the game: boot loads the
// progress bar and configures the stage, loader shows the bar while the game
// assets load, and main displays the game.
package states

import (
	"github.com/wolfeidau/gamekit/internal/game"
)

const (
	KeyBoot   = "boot"
	KeyLoader = "loader"
	KeyMain   = "main"
)

// Asset keys and paths, relative to the asset root.
const (
	LoadbarKey  = "loadbar"
	LoadbarPath = "assets/images/loadbar.png"
	LogoKey     = "phaser"
	LogoPath    = "assets/images/phaser.png"
)

// Register adds boot, loader and main to m and starts boot.
func Register(m *game.Manager) error {
	if err := m.Add(KeyBoot, &Boot{}, false); err != nil {
		return err
	}
	if err := m.Add(KeyLoader, &Loader{}, false); err != nil {
		return err
	}
	if err := m.Add(KeyMain, &Main{}, false); err != nil {
		return err
	}
	return m.Start(KeyBoot)
}

// Boot preloads the loadbar and applies the global display settings.
type Boot struct{}

func (b *Boot) Preload(ctx *game.Context) error {
	ctx.Load.Image(LoadbarKey, LoadbarPath)
	return nil
}

func (b *Boot) Create(ctx *game.Context) error {
	if err := ctx.Stage.SetBackgroundColor("#000"); err != nil {
		return err
	}
	// Keep running when the window loses focus.
	ctx.Stage.DisableVisibilityChange = true

	ctx.Scale.PageAlignHorizontally = true
	ctx.Scale.PageAlignVertically = true
	ctx.Scale.Mode = game.ShowAll

	return ctx.States.Start(KeyLoader)
}

// Loader shows the loadbar as a progress bar while the game assets load.
type Loader struct {
	loadbar *game.Sprite
}

func (l *Loader) Preload(ctx *game.Context) error {
	l.loadbar = ctx.Add.Sprite(ctx.World.CenterX(), ctx.World.CenterY(), LoadbarKey)
	l.loadbar.Anchor.Set(0.5)
	ctx.Load.SetPreloadSprite(l.loadbar)

	ctx.Load.Image(LogoKey, LogoPath)
	return nil
}

func (l *Loader) Create(ctx *game.Context) error {
	return ctx.States.Start(KeyMain)
}

// Main is where the game begins. For now it shows the logo.
type Main struct{}

func (m *Main) Create(ctx *game.Context) error {
	logo := ctx.Add.Sprite(ctx.World.CenterX(), ctx.World.CenterY(), LogoKey)
	logo.Anchor.Set(0.5)
	return nil
}
