package game

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_loadsOneImagePerStep(t *testing.T) {
	l := NewLoader(testAssets(t))
	assert.True(t, l.Done())
	assert.Equal(t, 100, l.Progress())

	l.Image("loadbar", "assets/images/loadbar.png")
	l.Image("phaser", "assets/images/phaser.png")
	assert.False(t, l.Done())
	assert.Equal(t, 2, l.Pending())
	assert.Equal(t, 0, l.Progress())

	require.NoError(t, l.Step())
	assert.Equal(t, 50, l.Progress())
	_, ok := l.Get("phaser")
	assert.False(t, ok)

	require.NoError(t, l.Step())
	assert.True(t, l.Done())
	assert.Equal(t, 100, l.Progress())

	img, ok := l.Get("phaser")
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())

	// Stepping an empty queue is a no-op.
	require.NoError(t, l.Step())
}

func TestLoader_errors(t *testing.T) {
	l := NewLoader(testAssets(t))

	l.Image("missing", "assets/images/missing.png")
	err := l.Step()
	require.ErrorIs(t, err, ErrAssetNotFound)
	assert.Contains(t, err.Error(), "missing")

	l.Image("broken", "assets/images/broken.png")
	require.Error(t, l.Step())
	_, ok := l.Get("broken")
	assert.False(t, ok)
}

func TestLoader_preloadSpriteTracksProgress(t *testing.T) {
	l := NewLoader(testAssets(t))
	l.Image("loadbar", "assets/images/loadbar.png")
	require.NoError(t, l.Step())

	l.reset()
	bar := &Sprite{Key: "loadbar"}
	l.Image("a", "assets/images/phaser.png")
	l.Image("b", "assets/images/phaser.png")
	l.Image("c", "assets/images/phaser.png")
	l.Image("d", "assets/images/phaser.png")
	l.SetPreloadSprite(bar)

	require.NotNil(t, bar.Crop)
	assert.Equal(t, 0, bar.Crop.Dx())

	widths := []int{}
	for !l.Done() {
		require.NoError(t, l.Step())
		widths = append(widths, bar.Crop.Dx())
	}
	assert.Equal(t, []int{50, 100, 150, 200}, widths)
	assert.Equal(t, 20, bar.Crop.Dy())
}

func TestLoader_cacheSurvivesReset(t *testing.T) {
	l := NewLoader(testAssets(t))
	l.Image("loadbar", "assets/images/loadbar.png")
	require.NoError(t, l.Step())

	l.reset()
	assert.True(t, l.Done())
	_, ok := l.Get("loadbar")
	assert.True(t, ok)
}
