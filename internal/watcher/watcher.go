package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
)

// Event is a media file that has stopped changing, with the watched root
// it appeared under.
type Event struct {
	Path string
	Root string
}

// Handler is called for every settled file. Calls never overlap.
type Handler func(ctx context.Context, ev Event)

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	settle    time.Duration
	recursive bool
	logger    *logging.Logger
	roots     []string

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan Event
	done    chan struct{}
}

type Option func(*Watcher)

func WithRecursive(recursive bool) Option {
	return func(w *Watcher) {
		w.recursive = recursive
	}
}

// WithSettleTime sets how long a file must go without events before it is
// handed to the handler.
func WithSettleTime(d time.Duration) Option {
	return func(w *Watcher) {
		w.settle = d
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func New(opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		settle:    30 * time.Second,
		recursive: true,
		logger:    logging.Nop(),
		pending:   make(map[string]*time.Timer),
		ready:     make(chan Event, 64),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Watch adds roots. Existing files are not reported; only files created or
// written after this call are.
func (w *Watcher) Watch(roots []string) error {
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			abs = root
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("unable to watch %s: %w", root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("unable to watch %s: not a directory", root)
		}

		w.roots = append(w.roots, abs)
		if w.recursive {
			err = w.addRecursive(abs)
		} else {
			err = w.add(abs)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) add(dir string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("unable to watch %s: %w", dir, err)
	}
	w.logger.Debug("watcher", "Watching", logging.F("dir", dir))
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		return w.add(path)
	})
}

// Run delivers settled files to handle until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(event)

		case ev := <-w.ready:
			handle(ctx, ev)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("watcher", "Watcher error", logging.F("error", err))
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.cancel(path)
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if event.Has(fsnotify.Create) && w.recursive && !isHidden(path) {
			// A directory moved in brings its files with it.
			if err := w.addRecursive(path); err != nil {
				w.logger.Warn("watcher", "Unable to watch new directory", logging.F("dir", path), logging.F("error", err))
			}
			w.scheduleTree(path)
		}
		return
	}

	if media.IsKnown(path) && !isHidden(path) {
		w.schedule(path)
	}
}

func (w *Watcher) scheduleTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && isHidden(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if media.IsKnown(path) && !isHidden(path) {
			w.schedule(path)
		}
		return nil
	})
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[path]; exists {
		timer.Stop()
	}

	ev := Event{Path: path, Root: w.rootFor(path)}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.ready <- ev:
		case <-w.done:
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[path]; exists {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

// Pending reports how many files are waiting to settle.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// rootFor returns the longest watched root containing path.
func (w *Watcher) rootFor(path string) string {
	best := filepath.Dir(path)
	bestLen := -1
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			if len(root) > bestLen {
				best, bestLen = root, len(root)
			}
		}
	}
	return best
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
