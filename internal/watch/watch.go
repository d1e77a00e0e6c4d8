// Package watch runs an update whenever the working tree has been quiet for a
// debounce period after a change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// UpdateFunc records the working tree. Errors are logged and watching goes on.
type UpdateFunc func() error

type Watcher struct {
	root     string
	metaDir  string
	debounce time.Duration
	update   UpdateFunc
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

// New registers every directory under root except metaDir. Changes made after
// New returns are seen by Run.
func New(root, metaDir string, debounce time.Duration, update UpdateFunc, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:     filepath.Clean(root),
		metaDir:  filepath.Clean(metaDir),
		debounce: debounce,
		update:   update,
		watcher:  watcher,
		logger:   logger,
	}

	if err := w.addTree(w.root); err != nil {
		watcher.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) ignored(path string) bool {
	path = filepath.Clean(path)
	return path == w.metaDir || strings.HasPrefix(path, w.metaDir+string(filepath.Separator))
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Removed between the event and the walk.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

// Run blocks until ctx is done, calling update once per quiet period that
// follows at least one change.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			w.logger.Debug("File system event", zap.String("path", event.Name), zap.String("op", event.Op.String()))

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-timer.C:
			if err := w.update(); err != nil {
				w.logger.Error("Automatic update failed", zap.Error(err))
			}
		}
	}
}
