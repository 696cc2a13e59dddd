package catalog

import "time"

// Store defines the metadata-store interface. Consumers should depend on
// this interface rather than the concrete *DB type to facilitate testing
// with mocks.
type Store interface {
	Insert(rec Record) error
	Get(id string) (*Record, error)
	List(limit, offset int, kind string) ([]Record, int, error)
	ListExpired(cutoff time.Time) ([]Record, error)
	Delete(id string) error
	AllIDs() (map[string]struct{}, error)
	IndexText(id, filename, body string) error
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
