package config

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// FileWatcher polls a file for content changes and invokes a callback with
// the raw bytes when they change. It uses polling rather than fsnotify to
// keep the dependency surface minimal. No component constructs one: the main
// config, the personality catalogue and the local-animation catalogue are
// all read once at startup.
type FileWatcher struct {
	path     string
	interval time.Duration
	onChange func(data []byte)
	log      umebot.Logger

	mu        sync.Mutex
	done      chan struct{}
	stopOnce  sync.Once
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// FileWatcherOption configures a FileWatcher.
type FileWatcherOption func(*FileWatcher)

// WithFileInterval sets the polling interval. The default is 5 seconds.
func WithFileInterval(d time.Duration) FileWatcherOption {
	return func(w *FileWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithFileLogger attaches a logger; the default is a no-op.
func WithFileLogger(l umebot.Logger) FileWatcherOption {
	return func(w *FileWatcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewFileWatcher starts polling path in the background. onChange fires
// once immediately with the file's current content, then again every time
// the content (not just the mtime) changes.
func NewFileWatcher(path string, onChange func(data []byte), opts ...FileWatcherOption) (*FileWatcher, error) {
	w := &FileWatcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		log:      umebot.NoOpLogger{},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	data, hash, mtime, err := w.readAndHash()
	if err != nil {
		return nil, fmt.Errorf("config: file watcher initial read %q: %w", path, err)
	}
	w.lastHash = hash
	w.lastMtime = mtime
	onChange(data)

	go w.poll()
	return w, nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *FileWatcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *FileWatcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("file watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()
	if info.ModTime().Equal(mtime) {
		return
	}

	data, hash, newMtime, err := w.readAndHash()
	if err != nil {
		w.log.Warn("file watcher: failed to read file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}
	w.lastHash = hash
	w.lastMtime = newMtime
	w.mu.Unlock()

	w.log.Info("file watcher: content changed", "path", w.path)
	w.onChange(data)
}

func (w *FileWatcher) readAndHash() ([]byte, [sha256.Size]byte, time.Time, error) {
	var zeroHash [sha256.Size]byte
	f, err := os.Open(w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	return data, sha256.Sum256(data), info.ModTime(), nil
}
