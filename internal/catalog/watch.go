package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the data directory and drops catalog
// records for blobs removed out of band (operator cleanup, external tools)
// until ctx is cancelled. The store itself only ever creates and removes
// blobs through its own API, so Create and Write events are ignored.
func Watch(ctx context.Context, db *DB, dataRoot string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dataRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", dataRoot))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".bin") {
				continue
			}
			id := strings.TrimSuffix(name, ".bin")
			if err := db.Delete(id); err != nil {
				logger.Warn("watcher: drop record failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("watcher: dropped record for removed blob", slog.String("id", id))
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: error", slog.String("error", err.Error()))
		}
	}
}
