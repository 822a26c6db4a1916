// Package engine renders a game.Context with ebiten.
package engine

import (
	"fmt"
	"image"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/wolfeidau/gamekit/internal/game"
)

// Renderer selects the graphics library.
type Renderer string

const (
	RendererAuto    Renderer = "auto"
	RendererOpenGL  Renderer = "opengl"
	RendererDirectX Renderer = "directx"
	RendererMetal   Renderer = "metal"
)

func ParseRenderer(s string) (Renderer, error) {
	switch r := Renderer(strings.ToLower(s)); r {
	case RendererAuto, RendererOpenGL, RendererDirectX, RendererMetal:
		return r, nil
	case "":
		return RendererAuto, nil
	default:
		return "", fmt.Errorf("unknown renderer %q", s)
	}
}

func (r Renderer) library() ebiten.GraphicsLibrary {
	switch r {
	case RendererOpenGL:
		return ebiten.GraphicsLibraryOpenGL
	case RendererDirectX:
		return ebiten.GraphicsLibraryDirectX
	case RendererMetal:
		return ebiten.GraphicsLibraryMetal
	default:
		return ebiten.GraphicsLibraryAuto
	}
}

type texture struct {
	src image.Image
	img *ebiten.Image
}

// Runtime implements ebiten.Game for a game.Context.
type Runtime struct {
	game       *game.Context
	textures   map[string]texture
	visibility game.VisibilitySync
}

func New(g *game.Context) *Runtime {
	return &Runtime{game: g, textures: map[string]texture{}}
}

// Update advances the state manager by one frame.
func (r *Runtime) Update() error {
	if err := r.game.States.Update(); err != nil {
		return err
	}

	if runnable, changed := r.visibility.Changed(*r.game.Stage); changed {
		ebiten.SetRunnableOnUnfocused(runnable)
	}
	return nil
}

// Draw fills the background and draws the world's sprites in order.
func (r *Runtime) Draw(screen *ebiten.Image) {
	screen.Fill(r.game.Stage.BackgroundColor)

	for _, s := range r.game.World.Sprites() {
		img, ok := r.texture(s.Key)
		if !ok {
			continue
		}
		full := img.Bounds()
		x, y := s.Origin(full.Dx(), full.Dy())

		if s.Crop != nil {
			crop := s.Crop.Intersect(full)
			if crop.Empty() {
				continue
			}
			x += float64(crop.Min.X - full.Min.X)
			y += float64(crop.Min.Y - full.Min.Y)
			img = img.SubImage(crop).(*ebiten.Image)
		}

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(x, y)
		screen.DrawImage(img, op)
	}
}

// Layout returns the logical screen size.
func (r *Runtime) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.game.Scale.Layout(outsideWidth, outsideHeight)
}

// DrawFinalScreen places the game canvas in the window following the scale
// mode and page alignment.
func (r *Runtime) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(r.game.Stage.BackgroundColor)

	vp := r.game.Scale.Viewport(screen.Bounds().Dx(), screen.Bounds().Dy())
	src := offscreen.Bounds()
	if vp.Empty() || src.Empty() {
		return
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(vp.Dx())/float64(src.Dx()), float64(vp.Dy())/float64(src.Dy()))
	op.GeoM.Translate(float64(vp.Min.X), float64(vp.Min.Y))
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// texture converts cached images to ebiten images on first use. Draw is
// the only place this may happen.
func (r *Runtime) texture(key string) (*ebiten.Image, bool) {
	src, ok := r.game.Load.Get(key)
	if !ok {
		return nil, false
	}
	if t, ok := r.textures[key]; ok && t.src == src {
		return t.img, true
	}
	img := ebiten.NewImageFromImage(src)
	r.textures[key] = texture{src: src, img: img}
	return img, true
}

type Options struct {
	Title    string
	Scale    float64
	Renderer Renderer
}

// Run opens a window and runs g until the window closes or a state fails.
func Run(g *game.Context, opts Options) error {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	ebiten.SetWindowTitle(opts.Title)
	ebiten.SetWindowSize(int(float64(g.Width)*opts.Scale), int(float64(g.Height)*opts.Scale))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	return ebiten.RunGameWithOptions(New(g), &ebiten.RunGameOptions{
		GraphicsLibrary: opts.Renderer.library(),
	})
}
