package game

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.White)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testAssets(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		"assets/images/loadbar.png": {Data: pngBytes(t, 200, 20)},
		"assets/images/phaser.png":  {Data: pngBytes(t, 64, 32)},
		"assets/images/broken.png":  {Data: []byte("not a png")},
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in       string
		expected color.RGBA
		wantErr  bool
	}{
		{in: "#000", expected: color.RGBA{A: 0xff}},
		{in: "#fff", expected: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		{in: "#1a2b3c", expected: color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}},
		{in: "000", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "#ggg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseHexColor(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestScaleManager(t *testing.T) {
	tests := []struct {
		name     string
		scale    ScaleManager
		layoutW  int
		layoutH  int
		viewport image.Rectangle
	}{
		{
			name:     "show all letterboxes and centers",
			scale:    ScaleManager{Mode: ShowAll, PageAlignHorizontally: true, PageAlignVertically: true},
			layoutW:  800,
			layoutH:  600,
			viewport: image.Rect(0, 50, 1600, 1250),
		},
		{
			name:     "show all without alignment sticks to the top left",
			scale:    ScaleManager{Mode: ShowAll},
			layoutW:  800,
			layoutH:  600,
			viewport: image.Rect(0, 0, 1600, 1200),
		},
		{
			name:     "no scale keeps size",
			scale:    ScaleManager{Mode: NoScale, PageAlignHorizontally: true},
			layoutW:  800,
			layoutH:  600,
			viewport: image.Rect(400, 0, 1200, 600),
		},
		{
			name:     "exact fit stretches",
			scale:    ScaleManager{Mode: ExactFit},
			layoutW:  800,
			layoutH:  600,
			viewport: image.Rect(0, 0, 1600, 1300),
		},
		{
			name:     "resize follows the window",
			scale:    ScaleManager{Mode: Resize},
			layoutW:  1600,
			layoutH:  1300,
			viewport: image.Rect(0, 0, 1600, 1300),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.scale.Width, tt.scale.Height = 800, 600

			w, h := tt.scale.Layout(1600, 1300)
			assert.Equal(t, tt.layoutW, w)
			assert.Equal(t, tt.layoutH, h)
			assert.Equal(t, tt.viewport, tt.scale.Viewport(1600, 1300))
		})
	}
}

func TestSpriteOrigin(t *testing.T) {
	s := &Sprite{X: 400, Y: 300}
	s.Anchor.Set(0.5)

	x, y := s.Origin(64, 32)
	assert.Equal(t, 368.0, x)
	assert.Equal(t, 284.0, y)
}

func TestFactory_addsToWorld(t *testing.T) {
	g := New(800, 600, testAssets(t))

	assert.Equal(t, 400.0, g.World.CenterX())
	assert.Equal(t, 300.0, g.World.CenterY())

	s := g.Add.Sprite(g.World.CenterX(), g.World.CenterY(), "phaser")
	require.Len(t, g.World.Sprites(), 1)
	assert.Same(t, s, g.World.Sprites()[0])
	assert.Equal(t, "phaser", s.Key)
}

func TestVisibilitySync(t *testing.T) {
	var v VisibilitySync

	// The default of pausing while unfocused is applied on the first frame.
	runnable, changed := v.Changed(Stage{})
	assert.False(t, runnable)
	assert.True(t, changed)

	_, changed = v.Changed(Stage{})
	assert.False(t, changed)

	runnable, changed = v.Changed(Stage{DisableVisibilityChange: true})
	assert.True(t, runnable)
	assert.True(t, changed)

	_, changed = v.Changed(Stage{DisableVisibilityChange: true})
	assert.False(t, changed)
}
