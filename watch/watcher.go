// Package watch runs continuous checking: a recursive fsnotify watcher
// debounces file events and feeds edited files through session checks.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/archspec/discover"
	"github.com/c360studio/archspec/engine"
	"github.com/c360studio/archspec/extract"
	"github.com/c360studio/archspec/rules"
	"github.com/c360studio/archspec/session"
)

// Config configures the watcher
type Config struct {
	// Root is the project directory to watch
	Root string

	// RulePath is the rule store location
	RulePath string

	// Debounce is how long to wait for more changes before checking
	Debounce time.Duration

	// IgnoreDirs are directory names excluded beyond the built-in list
	IgnoreDirs []string

	// Logger for logging events
	Logger *slog.Logger

	// Metrics receives per-check observations when set
	Metrics *Metrics
}

// CheckEvent is the outcome of checking one changed file
type CheckEvent struct {
	// Path is the file path relative to the project root
	Path string

	// Result holds the check outcome (nil when Err is set)
	Result *engine.ScanResult

	// Err if the check failed
	Err error
}

// Watcher watches a project and checks changed source files
type Watcher struct {
	config  Config
	checker *session.Checker
	loader  *rules.Loader
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	ignore  map[string]struct{}

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Output channel
	events chan CheckEvent
}

// NewWatcher creates a watcher that runs checks through the session checker.
func NewWatcher(config Config, checker *session.Checker, loader *rules.Loader) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce == 0 {
		config.Debounce = 500 * time.Millisecond
	}

	ignore := make(map[string]struct{})
	for _, d := range discover.DefaultIgnoredDirs {
		ignore[d] = struct{}{}
	}
	for _, d := range config.IgnoreDirs {
		ignore[d] = struct{}{}
	}

	return &Watcher{
		config:  config,
		checker: checker,
		loader:  loader,
		watcher: fsw,
		logger:  logger,
		ignore:  ignore,
		pending: make(map[string]fsnotify.Op),
		events:  make(chan CheckEvent, 100),
	}, nil
}

// Events returns the channel of check events
func (w *Watcher) Events() <-chan CheckEvent {
	return w.events
}

// Start begins watching the project for changes
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("File watcher started",
		"root", w.config.Root,
		"debounce", w.config.Debounce)

	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.events)
	return w.watcher.Close()
}

func (w *Watcher) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, skip := w.ignore[name]
	return skip
}

// addWatchesRecursive adds watches to all directories
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		if path != root && w.skipDir(filepath.Base(path)) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing
func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent processes a single fsnotify event
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !extract.Supported(filepath.Ext(path)) {
		// But handle directory creation (for new watches)
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	relPath, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return
	}
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if w.skipDir(part) {
			return
		}
	}

	// Accumulate pending changes
	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected",
		"path", relPath,
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory
func (w *Watcher) handleNewDirectory(path string) {
	if w.skipDir(filepath.Base(path)) {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending checks accumulated changes in path order
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()
	sort.Strings(paths)

	store, err := w.loader.Load(w.config.RulePath, "invariants.json")
	if err != nil {
		if !errors.Is(err, rules.ErrNoStore) {
			w.logger.Warn("Rule store unavailable", "error", err)
		}
		return
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Deleted since the event fired; nothing to check
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		relPath, err := filepath.Rel(w.config.Root, path)
		if err != nil {
			continue
		}
		relPath = filepath.ToSlash(relPath)

		start := time.Now()
		result, err := w.checker.Check(ctx, relPath, store)
		if err != nil {
			w.sendEvent(CheckEvent{Path: relPath, Err: err})
			continue
		}
		if w.config.Metrics != nil {
			w.config.Metrics.observe(result, time.Since(start))
		}
		w.sendEvent(CheckEvent{Path: relPath, Result: result})
	}
}

// sendEvent sends an event to the output channel
func (w *Watcher) sendEvent(event CheckEvent) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent check event", "path", event.Path)
	default:
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path)
	}
}
