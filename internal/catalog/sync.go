package catalog

import (
	"log/slog"

	"github.com/starford/folio/internal/storage"
)

// Sync reconciles the catalog with the content store at startup:
//   - records whose blob is gone are removed (a crash between a sweep's two
//     deletes, or an operator removing files by hand)
//   - blobs without a record are logged so an operator can reclaim them
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	ids, err := store.IDs()
	if err != nil {
		return err
	}

	catalogued, err := db.AllIDs()
	if err != nil {
		return err
	}

	onDisk := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		onDisk[id] = struct{}{}
		if _, ok := catalogued[id]; !ok {
			logger.Warn("sync: orphan blob without record", slog.String("id", id))
		}
	}

	for id := range catalogued {
		if _, ok := onDisk[id]; !ok {
			if err := db.Delete(id); err != nil {
				logger.Warn("sync: delete stale record failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale record", slog.String("id", id))
			}
		}
	}

	return nil
}
