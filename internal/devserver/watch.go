package devserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const DefaultDebounce = 100 * time.Millisecond

// ErrWatcherStopped is returned by Run when the underlying watcher closes
// before ctx is done.
var ErrWatcherStopped = errors.New("file watcher stopped")

// Watcher reports changes to matching files below a directory tree.
// Directories created after the watch started are picked up as well.
type Watcher struct {
	root     string
	match    func(name string) bool
	debounce time.Duration
	fs       *fsnotify.Watcher
}

// MatchExt matches file names with the extension ext, for example ".ts".
func MatchExt(ext string) func(string) bool {
	return func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), ext)
	}
}

func NewWatcher(root string, match func(string) bool, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{root: root, match: match, debounce: debounce, fs: fw}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == "node_modules" || (strings.HasPrefix(d.Name(), ".") && path != dir) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run calls onChange after a burst of matching changes has settled. onChange
// runs on the calling goroutine, so calls never overlap; changes arriving
// while it runs trigger one more call. Run returns nil when ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	defer w.fs.Close()
	log := zerolog.Ctx(ctx)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return ErrWatcherStopped
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						log.Warn().Err(err).Msg("Failed to watch new directory")
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.match(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrWatcherStopped
			}
			log.Warn().Err(err).Msg("File watcher error")

		case <-timer.C:
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			onChange(ctx, changed)
		}
	}
}
