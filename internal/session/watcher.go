package session

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/opencode-ai/sessionwatch/internal/logging"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// Watcher watches a FileStore's directory for changes to one session's
// document and signals a nudge channel when the file is written. Monitors can
// use the nudge to poll immediately instead of waiting out their interval.
// The nudge is best-effort; polling stays authoritative.
type Watcher struct {
	watcher *fsnotify.Watcher
	key     types.SessionKey
	file    string
	nudge    chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
	stopOnce sync.Once
}

// NewWatcher creates a watcher for one session key in a file store. The
// session's parent directory is created if it does not exist yet so the
// watch can be established before the session itself.
func NewWatcher(store *FileStore, key types.SessionKey) (*Watcher, error) {
	dir := filepath.Join(store.BasePath(), "session", key.AppID, key.UserID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		watcher: w,
		key:     key,
		file:    key.SessionID + ".json",
		nudge:   make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Nudge returns the channel signaled when the session document changes.
func (w *Watcher) Nudge() <-chan struct{} {
	return w.nudge
}

// Start begins watching. Calling Start twice is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, w.file) {
				continue
			}
			// Coalesce: a pending nudge covers any number of writes.
			select {
			case w.nudge <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Str("session", w.key.String()).Msg("session watcher error")
		}
	}
}

// Stop stops the watcher. Safe to call multiple times and without Start.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	w.stopOnce.Do(func() {
		close(w.stopCh)
	})

	if started {
		<-w.doneCh
	}
	return w.watcher.Close()
}
