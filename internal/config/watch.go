package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the burst of filesystem events a single editor
// save produces (write+chmod, or create+rename for atomic saves) into one
// reload.
const debounceDelay = 250 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk. Construct with
// NewWatcher, optionally set OnError, then call Run.
type Watcher struct {
	path string

	// OnError receives reload failures: an unreadable file, invalid YAML,
	// or a validation error. The previous config stays active in every such
	// case. When nil, failures are logged and swallowed.
	OnError func(error)
}

// NewWatcher creates a Watcher for the config file at path.
func NewWatcher(path string) *Watcher {
	return &Watcher{path: path}
}

// Run watches the file until ctx is cancelled, invoking onChange with each
// successfully reloaded config. Reloads are debounced, so a save that
// touches the file several times triggers onChange once.
func (w *Watcher) Run(ctx context.Context, onChange func(*Config)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: starting watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		return fmt.Errorf("config: watching %s: %w", w.path, err)
	}
	slog.Info("config: watching", "path", w.path)

	debounce := time.NewTimer(debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Atomic saves replace the inode; watch the new file before the
			// debounce window closes.
			_ = fw.Add(w.path)

			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(debounceDelay)

		case <-debounce.C:
			cfg, err := Load(w.path)
			if err != nil {
				w.fail(err)
				continue
			}
			slog.Info("config: reloaded", "path", w.path)
			onChange(cfg)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.fail(err)
		}
	}
}

func (w *Watcher) fail(err error) {
	if w.OnError != nil {
		w.OnError(err)
		return
	}
	slog.Error("config: reload failed, previous config stays active",
		"path", w.path, "err", err)
}
