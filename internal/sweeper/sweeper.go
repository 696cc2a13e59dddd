// Package sweeper implements age-based storage reclamation: a periodic scan
// that deletes resources older than the retention window from both the
// catalog and the content store.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/storage"
)

// Notifier receives a sweep event per deleted resource. May be nil.
type Notifier interface {
	Publish(event, id string)
}

// Sweeper deletes expired resources on a fixed interval.
type Sweeper struct {
	db        catalog.Store
	store     storage.Provider
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	events    Notifier
}

// New creates a sweeper. retention and interval fall back to 24h and 1h.
func New(db catalog.Store, store storage.Provider, retention, interval time.Duration, logger *slog.Logger, events Notifier) *Sweeper {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		db:        db,
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger,
		events:    events,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper: started",
		slog.Duration("interval", s.interval),
		slog.Duration("retention", s.retention))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper: stopped")
			return
		case <-ticker.C:
			deleted := s.Sweep(ctx)
			if deleted > 0 {
				s.logger.Info("sweeper: run complete", slog.Int("deleted", deleted))
			}
		}
	}
}

// Sweep performs one scan and returns the number of resources deleted.
// Each entry is attempted independently: one failed deletion is logged and
// must not block reclamation of the rest. A crash mid-sweep just leaves
// already-expired entries for the next run.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-s.retention)
	expired, err := s.db.ListExpired(cutoff)
	if err != nil {
		s.logger.Error("sweeper: list expired failed", slog.String("error", err.Error()))
		return 0
	}

	deleted := 0
	for _, rec := range expired {
		if ctx.Err() != nil {
			return deleted
		}
		// Record first so readers stop resolving the id, then the blob.
		if err := s.db.Delete(rec.ID); err != nil {
			s.logger.Warn("sweeper: delete record failed",
				slog.String("id", rec.ID), slog.String("error", err.Error()))
			continue
		}
		if err := s.store.Delete(rec.ID); err != nil {
			s.logger.Warn("sweeper: delete blob failed",
				slog.String("id", rec.ID), slog.String("error", err.Error()))
			continue
		}
		deleted++
		if s.events != nil {
			s.events.Publish("resource.swept", rec.ID)
		}
		s.logger.Debug("sweeper: deleted expired resource",
			slog.String("id", rec.ID),
			slog.Time("created_at", rec.CreatedAt))
	}
	return deleted
}
