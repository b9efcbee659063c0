package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/logger"
)

// watchDebounce coalesces the burst of events editors produce on save.
const watchDebounce = 200 * time.Millisecond

// Watch re-reads the config file whenever it changes and calls onChange with the result.
// It watches the parent directory so atomic rename-on-save is picked up. Invalid files are
// logged and skipped. Watch returns once the watcher is running; it stops when ctx ends.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("watch config: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch config %s: %w", abs, err)
	}

	log := logger.Named("config")
	go func() {
		defer w.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = time.After(watchDebounce)
			case <-pending:
				pending = nil
				cfg, err := LoadFile(abs)
				if err != nil {
					log.Warn("config reload failed", zap.String("path", abs), zap.Error(err))
					continue
				}
				log.Info("config reloaded", zap.String("path", abs))
				onChange(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
