// Package watch reports changes to the image folders of a session.
package watch

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fygallery/internal/scan"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

// LoggerFunc defines a function signature for logging messages.
type LoggerFunc func(message string)

// Watcher watches folder trees and reports the root of a tree once its
// changes have settled.
type Watcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	roots    map[string]bool
	watching map[string]string // directory -> root
	notify   chan string
	done     chan struct{}
	closed   sync.Once
	debounce time.Duration
	logger   LoggerFunc
}

// New starts a Watcher.
func New(debounce time.Duration, logger LoggerFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		watcher:  fw,
		roots:    make(map[string]bool),
		watching: make(map[string]string),
		notify:   make(chan string, 10),
		done:     make(chan struct{}),
		debounce: debounce,
		logger:   logger,
	}
	go w.run()
	return w, nil
}

func (w *Watcher) logMessage(format string, args ...interface{}) {
	if w.logger != nil {
		w.logger(fmt.Sprintf(format, args...))
	} else {
		log.Printf(format, args...)
	}
}

// WatchTree watches root and every directory below it.
func (w *Watcher) WatchTree(root string) error {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watching %s: not a directory", root)
	}
	w.mu.Lock()
	w.roots[root] = true
	w.mu.Unlock()
	return w.addTree(root, root)
}

func (w *Watcher) addTree(root, dir string) error {
	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logMessage("Error accessing path %q: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.add(root, path)
	})
}

func (w *Watcher) add(root, dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watching[dir]; ok {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.watching[dir] = root
	return nil
}

// Unwatch stops watching the tree under root.
func (w *Watcher) Unwatch(root string) {
	root = filepath.Clean(root)
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.roots, root)
	for dir, r := range w.watching {
		if r == root {
			if err := w.watcher.Remove(dir); err != nil {
				w.logMessage("Error unwatching %s: %v", dir, err)
			}
			delete(w.watching, dir)
		}
	}
}

// Watching returns the number of watched directories.
func (w *Watcher) Watching() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watching)
}

// Notify returns the channel that receives the roots of changed trees.
func (w *Watcher) Notify() <-chan string {
	return w.notify
}

// Close shuts down the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closed.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

// rootOf returns the watched root holding path.
func (w *Watcher) rootOf(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if root, ok := w.watching[path]; ok {
		return root, true
	}
	root, ok := w.watching[filepath.Dir(path)]
	return root, ok
}

// relevant reports whether an event on path can change the catalog.
func relevant(event fsnotify.Event) bool {
	if scan.IsImage(event.Name) {
		return true
	}
	// A removed or renamed directory cannot be stat'ed any more.
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return filepath.Ext(event.Name) == ""
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.IsDir()
}

func (w *Watcher) run() {
	lastEvent := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !(event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Write)) {
				continue
			}
			root, ok := w.rootOf(event.Name)
			if !ok || !relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(root, event.Name); err != nil {
						w.logMessage("Error watching new folder: %v", err)
					}
				}
			}
			lastEvent[root] = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logMessage("Watcher error: %v", err)

		case <-ticker.C:
			now := time.Now()
			for root, at := range lastEvent {
				if now.Sub(at) < w.debounce {
					continue
				}
				select {
				case w.notify <- root:
				default:
					// Channel full; a reload is already queued
				}
				delete(lastEvent, root)
			}
		}
	}
}
