// Package watcher reruns work when result files change on disk, so series
// can be refreshed while a simulation is still appending trials.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the quiet period that ends a burst of writes
const DefaultDebounce = 500 * time.Millisecond

// ErrNothingToWatch is returned when no path is a local file
var ErrNothingToWatch = errors.New("no local result files to watch")

// Watcher watches a set of result files
type Watcher struct {
	paths    []string
	debounce time.Duration
	log      logrus.FieldLogger
}

// New creates a watcher for paths. Remote locations such as s3:// are
// ignored.
func New(paths []string, log logrus.FieldLogger) *Watcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		paths:    paths,
		debounce: DefaultDebounce,
		log:      log.WithField("component", "watcher"),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks until ctx is done, calling onChange with the sorted
// absolute paths written since the last call once writes have been quiet
// for the debounce period. Calls never overlap.
func (w *Watcher) Watch(ctx context.Context, onChange func(changed []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Directories are watched so files replaced by rename are still seen
	watchedDirs := make(map[string]bool)
	fileSet := make(map[string]bool)
	for _, path := range w.paths {
		if strings.Contains(path, "://") {
			w.log.WithField("location", path).Warn("cannot watch remote location")
			continue
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := fw.Add(dir); err != nil {
				w.log.WithField("dir", dir).WithError(err).Warn("failed to watch directory")
				continue
			}
			watchedDirs[dir] = true
		}
		fileSet[absPath] = true
		w.log.WithField("path", absPath).Info("watching for changes")
	}
	if len(fileSet) == 0 {
		return ErrNothingToWatch
	}

	pending := make(map[string]bool)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			absPath, err := filepath.Abs(event.Name)
			if err != nil || !fileSet[absPath] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			pending[absPath] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.log.WithField("files", changed).Info("result files changed")
			onChange(changed)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
