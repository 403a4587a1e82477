package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the file at path and calls onChange each time it is written,
// replaced, or removed. It runs until ctx is cancelled. Writes made by this
// process fire too; use FileStore.Watch to skip a store's own saves.
//
// The parent directory is watched rather than the file itself: atomic saves
// replace the inode, and the file may not exist yet when Watch starts.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("store: watch: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("store: watch %q: %w", dir, err)
	}

	target := filepath.Clean(path)
	slog.Info("store: watching task file", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("store: task file changed", "path", target, "op", event.Op.String())
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("store: watcher error", "err", err)
		}
	}
}

// Watch is the package Watch for this store's file, except that events
// caused by the store's own Save are skipped: the file is re-read and
// compared with the bytes Save last wrote.
func (f *FileStore) Watch(ctx context.Context, onChange func()) error {
	return Watch(ctx, f.path, func() {
		if f.holdsOwnWrite() {
			return
		}
		onChange()
	})
}
