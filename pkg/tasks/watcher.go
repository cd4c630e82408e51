package tasks

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/hivetools/hive/logging"
)

// debounceWindow collapses editor save bursts into one refresh.
const debounceWindow = 250 * time.Millisecond

// Watcher observes the task directory tree and invokes a callback when
// markdown documents change. Used to poke the reconciliation loop so
// task edits show up before the next poll tick.
type Watcher struct {
	dir      string
	onChange func()
	fsw      *fsnotify.Watcher
	log      *logrus.Entry
}

// NewWatcher creates a watcher over dir. onChange runs on the watcher
// goroutine, debounced.
func NewWatcher(dir string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		onChange: onChange,
		fsw:      fsw,
		log:      logging.NewLogger("tasks"),
	}

	if err := w.watchTree(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// watchTree registers dir and every non-archive subdirectory.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				// A missing tasks dir is fine; events start once it exists.
				return filepath.SkipAll
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.EqualFold(d.Name(), "archive") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.log.WithError(addErr).WithField("path", path).Warn("Failed to watch task directory")
		}
		return nil
	})
}

// Run processes events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// New subdirectories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				_ = w.watchTree(event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.onChange()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Task watcher error")
		}
	}
}

// relevant filters events down to markdown churn and directory creation.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op.Has(fsnotify.Chmod) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.EqualFold(filepath.Ext(name), ".md") {
		return true
	}
	// Directory events carry no extension; let Create through so new
	// subtrees get watched, and Remove through to trigger a rescan.
	return filepath.Ext(name) == ""
}
