// Package watcher drives apply runs from filesystem events. Source roots
// are watched recursively; event bursts (editors write several times per
// save) are coalesced with a debounce timer, and runs are serialized by
// the single event loop, so there is never more than one in-flight run.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
)

// DefaultDebounce is the quiet period after the last event before a run
const DefaultDebounce = 300 * time.Millisecond

// Watcher re-runs a callback when source files change
type Watcher struct {
	paths    types.Pather
	debounce time.Duration
	run      func() error
}

// New creates a Watcher. run is invoked after each debounced change
// burst; a failing run is logged and watching continues.
func New(pather types.Pather, debounce time.Duration, run func() error) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{paths: pather, debounce: debounce, run: run}
}

// Watch blocks until the context is canceled, running the callback after
// every debounced burst of source changes. The initial run happens
// immediately so the project is in sync before the first event.
func (w *Watcher) Watch(ctx context.Context) error {
	logger := logging.GetLogger("watcher")

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot create filesystem watcher")
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addRoots(fsw); err != nil {
		return err
	}

	if err := w.run(); err != nil {
		logger.Error().Err(err).Msg("initial run failed")
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.ignore(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need their own watch
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
					_ = w.addTree(fsw, event.Name)
				}
			}
			logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("source changed")
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")

		case <-timer.C:
			if err := w.run(); err != nil {
				logger.Error().Err(err).Msg("run failed, still watching")
			}
		}
	}
}

// addRoots watches the project root itself plus every scan root and the
// framework tree, recursively
func (w *Watcher) addRoots(fsw *fsnotify.Watcher) error {
	if err := fsw.Add(w.paths.ProjectRoot()); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot watch %s", w.paths.ProjectRoot())
	}
	for _, rootName := range paths.ScanRoots {
		root := filepath.Join(w.paths.ProjectRoot(), rootName)
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if err := w.addTree(fsw, root); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if paths.ExcludedDirNames[d.Name()] {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			logger := logging.GetLogger("watcher")
			logger.Warn().Err(err).Str("dir", path).Msg("cannot watch directory")
		}
		return nil
	})
}

// ignore filters events from excluded directories and confit's own
// temporary write files, which would otherwise retrigger forever
func (w *Watcher) ignore(path string) bool {
	if strings.HasSuffix(path, ".confit.tmp") {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if paths.ExcludedDirNames[part] {
			return true
		}
	}
	return false
}
