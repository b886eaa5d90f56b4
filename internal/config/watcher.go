package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// fileState is the change-detection fingerprint of the config file: the
// mtime gates the cheap check, the content hash decides whether a reload is
// real.
type fileState struct {
	mtime time.Time
	sum   [sha256.Size]byte
}

// Watcher polls a config file and invokes a callback when its content
// changes and still parses as a valid config. Invalid edits are logged and
// skipped; the previous config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config
	seen    fileState

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path once, then polls it in the background until Stop.
// The initial load must succeed; after that, bad file states only warn.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, state, err := w.snapshot()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.seen = state

	go w.run()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) run() {
	tick := time.NewTicker(w.interval)
	defer tick.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-tick.C:
			if changed, old, cur := w.refresh(); changed && w.onChange != nil {
				w.onChange(old, cur)
			}
		}
	}
}

// refresh re-reads the file when its mtime moved and swaps in the new config
// when the content genuinely differs. Returns the old and new configs when a
// swap happened. The callback runs outside the lock, in run, so it may call
// Current.
func (w *Watcher) refresh() (changed bool, old, cur *Config) {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return false, nil, nil
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.seen.mtime)
	w.mu.Unlock()
	if unchanged {
		return false, nil, nil
	}

	cfg, state, err := w.snapshot()
	if err != nil {
		slog.Warn("config watcher: failed to load config", "path", w.path, "err", err)
		return false, nil, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if state.sum == w.seen.sum {
		// Touched but identical. Remember the mtime so we skip the
		// re-read next tick.
		w.seen.mtime = state.mtime
		return false, nil, nil
	}
	old = w.current
	w.current = cfg
	w.seen = state
	slog.Info("config watcher: configuration reloaded", "path", w.path)
	return true, old, cfg
}

// snapshot reads, hashes, and parses the file in one pass.
func (w *Watcher) snapshot() (*Config, fileState, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileState{}, err
	}
	return cfg, fileState{mtime: info.ModTime(), sum: sha256.Sum256(data)}, nil
}
