package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, yaml string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func startWatcher(t *testing.T, w *Watcher) (<-chan *Config, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reloads := make(chan *Config, 8)
	go func() {
		if err := w.Run(ctx, func(cfg *Config) { reloads <- cfg }); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	// Let the watcher arm before the test mutates the file.
	time.Sleep(50 * time.Millisecond)
	return reloads, cancel
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "bank:\n  http_port: 8080\n")

	reloads, _ := startWatcher(t, NewWatcher(path))

	writeConfig(t, path, "bank:\n  http_port: 9191\n")

	select {
	case cfg := <-reloads:
		if cfg.Bank.HTTPPort != 9191 {
			t.Errorf("reloaded http_port = %d, want 9191", cfg.Bank.HTTPPort)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after file change")
	}
}

func TestWatcher_DebouncesEventBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "bank:\n  http_port: 8080\n")

	reloads, _ := startWatcher(t, NewWatcher(path))

	// An editor save can hit the file several times in a row; the watcher
	// should fold the burst into a single reload.
	for i := 0; i < 5; i++ {
		writeConfig(t, path, "bank:\n  http_port: 9191\n")
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-reloads:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after burst")
	}

	select {
	case <-reloads:
		t.Error("burst of writes produced more than one reload")
	case <-time.After(2 * debounceDelay):
	}
}

func TestWatcher_BadYAMLSurfacesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "bank:\n  http_port: 8080\n")

	w := NewWatcher(path)
	errs := make(chan error, 8)
	w.OnError = func(err error) { errs <- err }

	reloads, _ := startWatcher(t, w)

	writeConfig(t, path, "bank: [not: valid\n")

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("OnError called with nil")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("broken config produced no error")
	}

	select {
	case cfg := <-reloads:
		t.Errorf("broken config triggered onChange: %+v", cfg)
	default:
	}
}
