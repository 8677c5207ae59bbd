// Package watcher re-runs an analysis when source files change.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/morozRed/swampmonster/internal/ignore"
)

// RunFunc performs one full analysis. changed lists the files that
// triggered it, relative to the watched root.
type RunFunc func(ctx context.Context, changed []string) error

// Watcher watches for file changes and triggers reanalysis
type Watcher struct {
	root       string
	extensions map[string]bool
	ignore     *ignore.Matcher
	fsWatcher  *fsnotify.Watcher
	run        RunFunc

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// serialises runs so two analyses never overlap
	runMu sync.Mutex

	onError func(error)
}

// Option configures the watcher
type Option func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithIgnoreRules skips paths matching gitignore-style rules.
func WithIgnoreRules(rules []string) Option {
	return func(w *Watcher) {
		w.ignore = ignore.NewMatcher(rules)
	}
}

// WithOnError sets the callback for watch and analysis errors
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a watcher over root reacting to files with the given
// extensions.
func New(root string, extensions []string, run RunFunc, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:          root,
		extensions:    make(map[string]bool, len(extensions)),
		ignore:        ignore.NewMatcher(nil),
		fsWatcher:     fsWatcher,
		run:           run,
		debounceDelay: 500 * time.Millisecond,
		pendingFiles:  make(map[string]struct{}),
	}
	for _, ext := range extensions {
		w.extensions[strings.ToLower(ext)] = true
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirs(root); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds all non-ignored directories to the watcher
func (w *Watcher) addDirs(start string) error {
	return filepath.Walk(start, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, path); relErr == nil && rel != "." && w.ignore.ShouldIgnore(rel, true) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Run watches until ctx is cancelled. A run in progress receives ctx and is
// expected to stop with it.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.reportError(err)
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.ignore.ShouldIgnore(rel, true) {
				if err := w.addDirs(event.Name); err != nil {
					w.reportError(err)
				}
			}
			return
		}
	}

	if !w.relevant(rel) {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[filepath.ToSlash(rel)] = struct{}{}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() { w.trigger(ctx) })
}

func (w *Watcher) relevant(rel string) bool {
	if !w.extensions[strings.ToLower(filepath.Ext(rel))] {
		return false
	}
	return !w.ignore.ShouldIgnore(rel, false)
}

// trigger runs the analysis after debounce
func (w *Watcher) trigger(ctx context.Context) {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 || ctx.Err() != nil {
		return
	}
	sort.Strings(files)

	w.runMu.Lock()
	defer w.runMu.Unlock()
	if err := w.run(ctx, files); err != nil && ctx.Err() == nil {
		w.reportError(fmt.Errorf("analysis failed: %w", err))
	}
}

func (w *Watcher) stopTimer() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
