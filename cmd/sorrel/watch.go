package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce duration - editors often write a file several times in a row
const debounce = 100 * time.Millisecond

// Watcher re-runs AST documents when they change on disk
type Watcher struct {
	watcher *fsnotify.Watcher
	files   map[string]string // absolute path -> path as given
	stdout  io.Writer
	stderr  io.Writer

	mu         sync.Mutex
	lastChange map[string]time.Time
}

// NewWatcher watches the directories holding files. Directories are
// watched rather than files so that editors which replace a file on save
// keep triggering events.
func NewWatcher(files []string, stdout, stderr io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:    fsWatcher,
		files:      make(map[string]string),
		stdout:     stdout,
		stderr:     stderr,
		lastChange: make(map[string]time.Time),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		w.files[abs] = f
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.logInfo("watching %s", dir)
	}
	return w, nil
}

// Run calls onChange for every change to a watched file until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path, ok := w.changed(event.Name)
			if !ok {
				continue
			}
			w.logInfo("document changed: %s", path)
			onChange(path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// changed maps an event to a watched file, dropping events that arrive
// within the debounce window of the previous one for that file.
func (w *Watcher) changed(name string) (string, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", false
	}
	path, ok := w.files[abs]
	if !ok {
		return "", false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if time.Since(w.lastChange[abs]) < debounce {
		return "", false
	}
	w.lastChange[abs] = time.Now()
	return path, true
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...any) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...any) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}
