package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, `server: {listen_addr: ":7070"}`)

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.ListenAddr; got != ":7070" {
		t.Errorf("ListenAddr = %q, want :7070", got)
	}
}

func TestWatcher_InitialLoadFailsOnInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, `server: {log_level: verbose}`)

	if _, err := NewWatcher(path, nil); err == nil {
		t.Fatal("expected error for invalid initial config")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, `server: {log_level: info}`)

	var (
		mu      sync.Mutex
		changed bool
		newCfg  *Config
	)
	w, err := NewWatcher(path, func(old, new *Config) {
		mu.Lock()
		defer mu.Unlock()
		changed = true
		newCfg = new
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Backdated mtime guarantees the rewrite below looks newer.
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	writeConfigFile(t, path, `server: {log_level: debug}`)

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		done := changed
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for change callback")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if newCfg.Server.LogLevel != LogDebug {
		t.Errorf("new LogLevel = %q, want debug", newCfg.Server.LogLevel)
	}
	if w.Current().Server.LogLevel != LogDebug {
		t.Errorf("Current LogLevel = %q, want debug", w.Current().Server.LogLevel)
	}
}

func TestWatcher_KeepsOldConfigOnInvalidRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, `server: {log_level: info}`)

	called := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(old, new *Config) {
		select {
		case called <- struct{}{}:
		default:
		}
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	writeConfigFile(t, path, `server: {log_level: verbose}`)

	select {
	case <-called:
		t.Fatal("onChange fired for an invalid config")
	case <-time.After(100 * time.Millisecond):
	}
	if w.Current().Server.LogLevel != LogInfo {
		t.Errorf("Current LogLevel = %q, want the old value info", w.Current().Server.LogLevel)
	}
}
