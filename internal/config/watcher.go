package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultPollInterval is how often the watcher checks the file for
// changes when no interval option is given.
const DefaultPollInterval = 5 * time.Second

// Watcher polls a config file and reloads it when the content changes.
// Polling keeps the implementation portable; a mtime check makes the
// common no-change poll a single stat call, and a content hash filters
// out touch-without-change events.
//
// A reload that fails to parse or validate keeps the previous config and
// logs a warning, so a half-written file never takes down a healthy
// process.
type Watcher struct {
	path     string
	interval time.Duration

	mu       sync.RWMutex
	current  *Config
	lastMod  time.Time
	lastHash [sha256.Size]byte

	cbMu      sync.Mutex
	callbacks []func(old, new *Config)

	stop     chan struct{}
	stopOnce sync.Once
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithPollInterval overrides how often the file is checked.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the file once and returns a watcher primed with that
// config. The initial load must succeed; a service should not start on a
// broken file.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultPollInterval,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	data, info, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	w.current = cfg
	w.lastMod = info.ModTime()
	w.lastHash = sha256.Sum256(data)
	return w, nil
}

// Current returns the most recently loaded config. The returned pointer
// must be treated as read-only.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after every successful reload
// that produced a different file content. Callbacks run on the watcher
// goroutine and should return quickly.
func (w *Watcher) OnChange(fn func(old, new *Config)) {
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start begins polling in a background goroutine until Stop is called or
// ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				w.checkOnce()
			}
		}
	}()
}

// Stop ends polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Watcher) checkOnce() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: stat failed, keeping current config", "path", w.path, "error", err)
		return
	}

	w.mu.RLock()
	unchanged := info.ModTime().Equal(w.lastMod)
	w.mu.RUnlock()
	if unchanged {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Warn("config watcher: read failed, keeping current config", "path", w.path, "error", err)
		return
	}
	hash := sha256.Sum256(data)

	w.mu.Lock()
	if hash == w.lastHash {
		// Touched but not changed. Remember the new mtime so the next
		// poll goes back to a single stat.
		w.lastMod = info.ModTime()
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		slog.Warn("config watcher: reload failed, keeping current config", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = cfg
	w.lastMod = info.ModTime()
	w.lastHash = hash
	w.mu.Unlock()

	slog.Info("config reloaded", "path", w.path)

	w.cbMu.Lock()
	cbs := make([]func(old, new *Config), len(w.callbacks))
	copy(cbs, w.callbacks)
	w.cbMu.Unlock()
	for _, fn := range cbs {
		fn(old, cfg)
	}
}

func readFile(path string) ([]byte, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return data, info, nil
}
