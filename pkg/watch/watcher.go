// Package watch re-runs scripts when they change on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports debounced batches of changed script paths.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	match      *Matcher
	onChange   func([]string)
	callbackMu sync.Mutex
	closed     bool // guarded by callbackMu
	log        *slog.Logger

	files map[string]bool
	dirs  map[string]bool

	pending   map[string]struct{}
	pendingMu sync.Mutex
	timer     *time.Timer
}

// New creates a watcher. match filters files inside watched directories;
// explicitly added files are always reported.
func New(debounce time.Duration, match *Matcher, onChange func([]string), logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		match:     match,
		onChange:  onChange,
		log:       logger,
		files:     make(map[string]bool),
		dirs:      make(map[string]bool),
		pending:   make(map[string]struct{}),
	}, nil
}

// Add watches a script file or a directory of scripts. Files are watched
// through their parent directory so that editors replacing the file on save
// keep being seen.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	dir := abs
	if info.IsDir() {
		w.dirs[abs] = true
	} else {
		w.files[abs] = true
		dir = filepath.Dir(abs)
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

// Run delivers change batches until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.scheduleChange(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if w.files[abs] {
		return true
	}
	return w.dirs[filepath.Dir(abs)] && w.match.Match(abs)
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	if w.closed {
		return
	}
	w.onChange(paths)
}

// Close stops the watcher. It waits for a callback already in progress, and
// no callback starts after it returns.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()

	w.callbackMu.Lock()
	w.closed = true
	w.callbackMu.Unlock()
	return w.fsWatcher.Close()
}
