package source

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/correlate/pkg/logger"
)

// watchDebounce coalesces the burst of events a single save produces.
const watchDebounce = 200 * time.Millisecond

// WatchFile calls onChange after the file at path is written, created or
// replaced, until ctx is done. The parent directory is watched so editors
// that save by renaming a temp file are seen too.
func WatchFile(ctx context.Context, path string, onChange func(ctx context.Context)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	log := logger.Named("source.watch")
	log.Info(ctx, "watching events file", logger.String("path", target))

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn(ctx, "watch error", logger.Error(err))
		case <-timer.C:
			log.Debug(ctx, "events file changed", logger.String("path", target))
			onChange(ctx)
		}
	}
}
