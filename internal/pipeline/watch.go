package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch calls run once, then again after any of paths changes, until ctx
// ends. Changes within debounce of each other trigger one run. Directories
// are watched rather than files so editors that replace a file on save are
// still seen.
func Watch(ctx context.Context, paths []string, debounce time.Duration, logger *slog.Logger, run func(ctx context.Context)) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	targets := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		if isURL(p) {
			return fmt.Errorf("%w: %s: only local files can be watched", ErrUnreadable, p)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrUnreadable, p, err)
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("%w: watch %s: %w", ErrUnreadable, dir, err)
			}
			dirs[dir] = true
		}
	}

	run(ctx)

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("input changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			timer.Reset(debounce)

		case <-timer.C:
			run(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.Any("error", err))
		}
	}
}
