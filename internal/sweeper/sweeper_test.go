package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func insertAged(t *testing.T, db *catalog.DB, store *storage.FS, id string, age time.Duration) {
	t.Helper()
	if err := store.Put(id, []byte("blob-"+id)); err != nil {
		t.Fatal(err)
	}
	err := db.Insert(catalog.Record{
		ID:        id,
		Kind:      models.KindOriginalUpload,
		Filename:  id + ".pdf",
		SizeBytes: 8,
		PageCount: 1,
		CreatedAt: time.Now().UTC().Add(-age),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSweepDeletesOnlyExpired(t *testing.T) {
	db := testutil.TestCatalog(t)
	store := testutil.TestStore(t)
	retention := time.Hour

	insertAged(t, db, store, "old", retention+time.Minute)
	insertAged(t, db, store, "fresh", retention-time.Minute)

	s := New(db, store, retention, time.Hour, discardLogger(), nil)
	if got := s.Sweep(context.Background()); got != 1 {
		t.Fatalf("deleted = %d, want 1", got)
	}

	if _, err := db.Get("old"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old record err = %v", err)
	}
	if _, err := store.Get("old"); !errors.Is(err, storage.ErrNoBlob) {
		t.Errorf("old blob err = %v", err)
	}
	if _, err := db.Get("fresh"); err != nil {
		t.Errorf("fresh record was swept: %v", err)
	}
	if _, err := store.Get("fresh"); err != nil {
		t.Errorf("fresh blob was swept: %v", err)
	}
}

func TestSweepEachVersionAgesIndependently(t *testing.T) {
	db := testutil.TestCatalog(t)
	store := testutil.TestStore(t)
	retention := time.Hour

	// A derived version younger than its expired lineage root survives.
	insertAged(t, db, store, "root", retention+time.Minute)
	if err := store.Put("derived", []byte("blob-derived")); err != nil {
		t.Fatal(err)
	}
	err := db.Insert(catalog.Record{
		ID:        "derived",
		Kind:      models.KindEditedVersion,
		Lineage:   "root",
		CreatedAt: time.Now().UTC().Add(-time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	s := New(db, store, retention, time.Hour, discardLogger(), nil)
	if got := s.Sweep(context.Background()); got != 1 {
		t.Fatalf("deleted = %d", got)
	}
	if _, err := db.Get("derived"); err != nil {
		t.Errorf("derived swept with its root: %v", err)
	}
	// The derived resource's content survives its source's deletion.
	if _, err := store.Get("derived"); err != nil {
		t.Errorf("derived blob gone: %v", err)
	}
}

func TestSweepContinuesPastMissingBlobs(t *testing.T) {
	db := testutil.TestCatalog(t)
	store := testutil.TestStore(t)
	retention := time.Hour

	insertAged(t, db, store, "a", retention+time.Minute)
	insertAged(t, db, store, "b", retention+time.Minute)
	// A blob already missing behaves like an idempotent delete.
	_ = store.Delete("a")

	s := New(db, store, retention, time.Hour, discardLogger(), nil)
	if got := s.Sweep(context.Background()); got != 2 {
		t.Fatalf("deleted = %d, want 2", got)
	}
}

func TestSweepEmptyStore(t *testing.T) {
	db := testutil.TestCatalog(t)
	store := testutil.TestStore(t)
	s := New(db, store, time.Hour, time.Hour, discardLogger(), nil)
	if got := s.Sweep(context.Background()); got != 0 {
		t.Errorf("deleted = %d", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	db := testutil.TestCatalog(t)
	store := testutil.TestStore(t)
	s := New(db, store, time.Hour, 10*time.Millisecond, discardLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
