package game

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"path"
)

var ErrAssetNotFound = errors.New("asset not found")

type asset struct {
	key  string
	path string
}

// Loader loads queued images one at a time so callers can show progress.
// Loaded images stay cached for the lifetime of the game.
type Loader struct {
	fsys   fs.FS
	queue  []asset
	total  int
	loaded int
	cache  map[string]image.Image

	preload *Sprite
}

func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys, cache: map[string]image.Image{}}
}

// Image queues the image at p under key. p is slash separated and relative
// to the asset root.
func (l *Loader) Image(key, p string) {
	l.queue = append(l.queue, asset{key: key, path: path.Clean(p)})
	l.total++
}

// SetPreloadSprite makes s a progress bar for the current batch: its crop
// width follows Progress.
func (l *Loader) SetPreloadSprite(s *Sprite) {
	l.preload = s
	l.updatePreloadSprite()
}

// Progress is the share of the current batch already loaded, 0 to 100. An
// empty batch is complete.
func (l *Loader) Progress() int {
	if l.total == 0 {
		return 100
	}
	return l.loaded * 100 / l.total
}

func (l *Loader) Done() bool {
	return len(l.queue) == 0
}

// Pending returns the number of queued images not yet loaded.
func (l *Loader) Pending() int {
	return len(l.queue)
}

// Step loads the next queued image.
func (l *Loader) Step() error {
	if len(l.queue) == 0 {
		return nil
	}
	next := l.queue[0]
	l.queue = l.queue[1:]

	img, err := l.decode(next.path)
	if err != nil {
		return fmt.Errorf("failed to load %s (%s): %w", next.key, next.path, err)
	}
	l.cache[next.key] = img
	l.loaded++
	l.updatePreloadSprite()

	return nil
}

func (l *Loader) decode(p string) (image.Image, error) {
	f, err := l.fsys.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Get returns the cached image for key.
func (l *Loader) Get(key string) (image.Image, bool) {
	img, ok := l.cache[key]
	return img, ok
}

// reset starts a new batch. The cache is kept.
func (l *Loader) reset() {
	l.queue = nil
	l.total = 0
	l.loaded = 0
	l.preload = nil
}

func (l *Loader) updatePreloadSprite() {
	if l.preload == nil {
		return
	}
	img, ok := l.cache[l.preload.Key]
	if !ok {
		return
	}
	b := img.Bounds()
	crop := image.Rect(b.Min.X, b.Min.Y, b.Min.X+b.Dx()*l.Progress()/100, b.Max.Y)
	l.preload.Crop = &crop
}
