package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchOcean reloads path whenever it is written and delivers the new
// [ocean] table. Only the latest update is kept when the consumer falls
// behind. The watcher stops when ctx is done; the channel is then closed.
func watchOcean(ctx context.Context, path string, logger *slog.Logger) (<-chan oceanConfig, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("oceanbench: watch: %w", err)
	}
	// Editors often replace the file, so watch its directory.
	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("oceanbench: watch %s: %w", path, err)
	}

	out := make(chan oceanConfig, 1)
	go func() {
		defer close(out)
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != target || !e.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				c, err := loadBenchConfig(target)
				if err != nil {
					logger.Warn("config reload rejected", "err", err)
					continue
				}
				select {
				case <-out:
				default:
				}
				out <- c.Ocean
				logger.Info("ocean parameters reloaded", "waves", len(c.Ocean.Waves), "grid", c.Ocean.Grid)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", "err", err)
			}
		}
	}()
	return out, nil
}
