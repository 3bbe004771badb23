// Package watch invalidates cached compilation results and symbol indices
// when script files change on disk outside the editor's knowledge.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/groovy-tools/gls/internal/source"
)

// scriptExtensions are the file suffixes the watcher reacts to.
var scriptExtensions = map[string]bool{
	".groovy": true,
	".gradle": true,
	".gvy":    true,
}

// Invalidator drops derived state for one file.
type Invalidator interface {
	Invalidate(key source.Key)
}

// Watcher observes source roots recursively and forwards change events to
// its invalidators.
type Watcher struct {
	fsw          *fsnotify.Watcher
	invalidators []Invalidator
	logger       *slog.Logger
}

// New creates a watcher over the given source roots. Subdirectories are
// registered recursively; directories created later are added as their
// create events arrive.
func New(roots []string, logger *slog.Logger, invalidators ...Invalidator) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, invalidators: invalidators, logger: logger}

	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			w.logger.Warn("watch error", "err", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		// New directories need explicit registration.
		if err := w.addRecursive(event.Name); err == nil {
			w.logger.Debug("watching new path", "path", event.Name)
		}
	}

	if !scriptExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	key := source.KeyFor(event.Name)
	w.logger.Debug("script changed on disk", "file", key, "op", event.Op.String())

	for _, inv := range w.invalidators {
		inv.Invalidate(key)
	}
}

// addRecursive registers dir and every subdirectory. Non-directories are
// ignored.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}

		if d.IsDir() {
			return w.fsw.Add(path)
		}

		return nil
	})
}
