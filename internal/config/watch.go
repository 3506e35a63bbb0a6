package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/flighthook/flighthook/internal/log"
)

// Watcher watches a config file for out-of-band edits and invokes a
// callback with a ReplaceAll Action once changes settle, debounced so a
// burst of writes from an editor yields one reload rather than many.
type Watcher struct {
	path     string
	loader   *Loader
	onChange func(Action)
	watcher  *fsnotify.Watcher
}

// NewWatcher constructs a Watcher for path. onChange is invoked with a
// ReplaceAll Action each time the file settles after a write/create
// event; the caller (SystemActor) is responsible for feeding that
// Action through the same serial config_command path used for
// API-originated mutations.
func NewWatcher(path string, loader *Loader, onChange func(Action)) *Watcher {
	return &Watcher{path: path, loader: loader, onChange: onChange}
}

// Start begins watching in a background goroutine. It is a no-op if
// path is empty (no file to watch, config is ephemeral/in-memory only).
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.path); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	go w.loop(ctx)
	return nil
}

// Stop releases the underlying OS watch.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *Watcher) loop(ctx context.Context) {
	logger := log.WithComponent("config.watcher")
	const debounce = 500 * time.Millisecond
	var timer *time.Timer

	fire := func() {
		cfg, err := w.loader.Load()
		if err != nil {
			logger.Error().Err(err).Msg("reload: failed to load config after file change")
			return
		}
		w.onChange(Action{Kind: ActionReplaceAll, ReplaceAll: cfg})
	}

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, fire)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("config watcher error")
		}
	}
}
