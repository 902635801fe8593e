// Package confwatcher contains a file watcher.
package confwatcher

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	minInterval    = 1 * time.Second
	additionalWait = 10 * time.Millisecond
)

// ConfWatcher watches a set of files and signals when any of them changes.
// Parent directories are watched, so that files replaced by editors
// or by symlink swaps are still tracked.
type ConfWatcher struct {
	FilePaths []string

	inner       *fsnotify.Watcher
	watchedDirs map[string]struct{}
	targets     map[string]struct{}

	// out
	signal chan struct{}
	done   chan struct{}
}

// Initialize initializes a ConfWatcher.
func (w *ConfWatcher) Initialize() error {
	var err error
	w.inner, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.watchedDirs = make(map[string]struct{})
	w.targets = make(map[string]struct{})

	for _, fpath := range w.FilePaths {
		err = w.add(fpath)
		if err != nil {
			w.inner.Close() //nolint:errcheck
			return err
		}
	}

	w.signal = make(chan struct{})
	w.done = make(chan struct{})

	go w.run()

	return nil
}

func (w *ConfWatcher) add(fpath string) error {
	if _, err := os.Stat(fpath); err != nil {
		return err
	}

	absPath, err := filepath.Abs(fpath)
	if err != nil {
		return err
	}

	w.targets[absPath] = struct{}{}

	// a symlink target is tracked too, in order to detect changes to the linked file.
	if realPath, err2 := filepath.EvalSymlinks(absPath); err2 == nil && realPath != absPath {
		w.targets[realPath] = struct{}{}
		err = w.watchDir(filepath.Dir(realPath))
		if err != nil {
			return err
		}
	}

	return w.watchDir(filepath.Dir(absPath))
}

func (w *ConfWatcher) watchDir(dir string) error {
	if _, ok := w.watchedDirs[dir]; ok {
		return nil
	}

	err := w.inner.Add(dir)
	if err != nil {
		return err
	}

	w.watchedDirs[dir] = struct{}{}
	return nil
}

// Close closes a ConfWatcher.
func (w *ConfWatcher) Close() {
	go func() {
		for range w.signal { //nolint:revive
		}
	}()
	w.inner.Close() //nolint:errcheck
	<-w.done
}

func (w *ConfWatcher) run() {
	defer close(w.done)
	defer close(w.signal)

	var lastSignal time.Time

	for {
		select {
		case event, ok := <-w.inner.Events:
			if !ok {
				return
			}

			if _, ok := w.targets[filepath.Clean(event.Name)]; !ok {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if time.Since(lastSignal) < minInterval {
				continue
			}

			// wait some additional time to allow the writer to complete its job
			time.Sleep(additionalWait)

			lastSignal = time.Now()
			w.signal <- struct{}{}

		case _, ok := <-w.inner.Errors:
			if !ok {
				return
			}
		}
	}
}

// Watch returns a channel that is written when a file has changed.
func (w *ConfWatcher) Watch() chan struct{} {
	return w.signal
}
