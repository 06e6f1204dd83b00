package session

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/pyfinder/pkg/probe"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher triggers a callback when environment managers change what they
// have installed: a directory gaining or losing children, or a specific
// file being rewritten.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *logrus.Entry
	onChange func(path string)

	// files maps watched files to true; their parent directories are
	// watched and other entries there are ignored.
	files map[string]bool
	dirs  map[string]bool

	mu      sync.Mutex
	timer   *time.Timer
	last    string
	stopped bool
}

// NewWatcher watches each existing path. Directories report changes to
// their direct children; files are watched through their parent.
// Missing paths are skipped.
func NewWatcher(debounce time.Duration, logger *logrus.Entry, onChange func(string), paths ...string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:  watcher,
		debounce: debounce,
		logger:   logger,
		onChange: onChange,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}

	watched := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		dir := p
		if probe.IsDir(p) {
			w.dirs[p] = true
		} else {
			dir = filepath.Dir(p)
			if !probe.IsDir(dir) {
				logger.Debugf("Not watching %s: parent directory missing", p)
				continue
			}
			w.files[p] = true
		}
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			logger.WithError(err).Warnf("Failed to watch %s", dir)
			continue
		}
		watched[dir] = true
		logger.Debugf("Watching %s", dir)
	}
	return w, nil
}

// Start delivers events until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if w.relevant(event) {
				w.schedule(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return w.files[name] || w.dirs[filepath.Dir(name)]
}

// schedule fires onChange once changes have been quiet for the debounce
// interval.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.last = path
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	path, stopped := w.last, w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	w.logger.Infof("Detected change in %s", path)
	if w.onChange != nil {
		w.onChange(path)
	}
}

// Close stops the watcher and any pending callback.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
