// Package game is the runtime shell of a game: a registry of named states,
// an incremental asset loader and the display list the states populate.
//
// Nothing here draws. A renderer such as internal/engine drives
// Manager.Update once per frame and draws the World.
package game

import (
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"strconv"
	"strings"
)

// Context is handed to every state callback. It is the only way a state
// reaches the rest of the game.
type Context struct {
	Width  int
	Height int

	Load   *Loader
	Stage  *Stage
	Scale  *ScaleManager
	World  *World
	Add    *Factory
	States *Manager
}

// New creates a game of the given logical size loading assets from assets.
func New(width, height int, assets fs.FS) *Context {
	ctx := &Context{
		Width:  width,
		Height: height,
		Load:   NewLoader(assets),
		Stage:  &Stage{BackgroundColor: color.RGBA{A: 0xff}},
		Scale:  &ScaleManager{Width: width, Height: height},
		World:  &World{Width: float64(width), Height: float64(height)},
	}
	ctx.Add = &Factory{world: ctx.World}
	ctx.States = newManager(ctx)
	return ctx
}

type Stage struct {
	BackgroundColor color.RGBA
	// DisableVisibilityChange keeps the game running while its window is
	// not focused.
	DisableVisibilityChange bool
}

// SetBackgroundColor parses a CSS style hex color, #rgb or #rrggbb.
func (s *Stage) SetBackgroundColor(hex string) error {
	c, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	s.BackgroundColor = c
	return nil
}

// VisibilitySync tracks which run-while-unfocused setting was last applied
// to the window.
type VisibilitySync struct {
	applied  bool
	runnable bool
}

// Changed reports the setting s asks for, and whether it differs from the
// last one applied. The first call always reports a change.
func (v *VisibilitySync) Changed(s Stage) (runnable, changed bool) {
	runnable = s.DisableVisibilityChange
	if v.applied && v.runnable == runnable {
		return runnable, false
	}
	v.applied, v.runnable = true, runnable
	return runnable, true
}

func ParseHexColor(hex string) (color.RGBA, error) {
	digits, ok := strings.CutPrefix(hex, "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("invalid color %q: missing #", hex)
	}
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	if len(digits) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want #rgb or #rrggbb", hex)
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

type ScaleMode int

const (
	NoScale ScaleMode = iota
	ExactFit
	ShowAll
	Resize
)

func (m ScaleMode) String() string {
	switch m {
	case NoScale:
		return "no-scale"
	case ExactFit:
		return "exact-fit"
	case ShowAll:
		return "show-all"
	case Resize:
		return "resize"
	default:
		return "unknown"
	}
}

// ScaleManager decides how the game canvas maps onto its window.
type ScaleManager struct {
	Mode                  ScaleMode
	PageAlignHorizontally bool
	PageAlignVertically   bool

	Width  int
	Height int
}

// Layout returns the logical screen size for a window of the given size.
// Only Resize follows the window, the other modes keep the game size and
// leave scaling to the renderer.
func (s *ScaleManager) Layout(outsideWidth, outsideHeight int) (int, int) {
	if s.Mode == Resize {
		return outsideWidth, outsideHeight
	}
	return s.Width, s.Height
}

// Viewport is the area of a window of the given size the canvas covers.
func (s *ScaleManager) Viewport(outsideWidth, outsideHeight int) image.Rectangle {
	w, h := s.Width, s.Height

	switch s.Mode {
	case ExactFit, Resize:
		return image.Rect(0, 0, outsideWidth, outsideHeight)
	case ShowAll:
		if outsideWidth*s.Height < outsideHeight*s.Width {
			w, h = outsideWidth, s.Height*outsideWidth/s.Width
		} else {
			w, h = s.Width*outsideHeight/s.Height, outsideHeight
		}
	}

	var x, y int
	if s.PageAlignHorizontally {
		x = (outsideWidth - w) / 2
	}
	if s.PageAlignVertically {
		y = (outsideHeight - h) / 2
	}
	return image.Rect(x, y, x+w, y+h)
}

// World is the display list of the running state. It is cleared whenever
// a new state starts.
type World struct {
	Width   float64
	Height  float64
	sprites []*Sprite
}

func (w *World) CenterX() float64 { return w.Width / 2 }
func (w *World) CenterY() float64 { return w.Height / 2 }

// Sprites returns the display list in draw order.
func (w *World) Sprites() []*Sprite {
	return w.sprites
}

func (w *World) add(s *Sprite) {
	w.sprites = append(w.sprites, s)
}

func (w *World) clear() {
	w.sprites = nil
}

type Point struct {
	X, Y float64
}

// Set gives both coordinates the same value.
func (p *Point) Set(v float64) {
	p.X, p.Y = v, v
}

// Sprite shows the image cached under Key at X, Y. Anchor is the point of
// the image placed at that position, relative to its size.
type Sprite struct {
	X, Y   float64
	Key    string
	Anchor Point
	// Crop limits drawing to part of the image. Nil draws all of it.
	Crop *image.Rectangle
}

// Origin returns the top left corner of the sprite on screen for an image
// of size w by h.
func (s *Sprite) Origin(w, h int) (float64, float64) {
	return s.X - s.Anchor.X*float64(w), s.Y - s.Anchor.Y*float64(h)
}

// Factory adds new objects to the world.
type Factory struct {
	world *World
}

func (f *Factory) Sprite(x, y float64, key string) *Sprite {
	s := &Sprite{X: x, Y: y, Key: key}
	f.world.add(s)
	return s
}
