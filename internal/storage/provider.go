// Package storage defines the content-store abstraction: one immutable blob
// per resource identifier.
package storage

import "errors"

// ErrNoBlob is returned by Get when no blob exists for an id. The service
// layer maps it onto the apperr taxonomy.
var ErrNoBlob = errors.New("storage: no blob for id")

// Provider is the interface for content blob operations. A Put for an id is
// visible to later Gets only after it returns; concurrent operations on
// different ids never interfere.
type Provider interface {
	// Put atomically publishes content under id. A failed Put leaves no
	// readable partial blob.
	Put(id string, content []byte) error
	// Get returns the blob stored under id, or ErrNoBlob.
	Get(id string) ([]byte, error)
	// Delete removes the blob for id. Deleting a missing id is not an error.
	Delete(id string) error
	// IDs returns the identifiers of every stored blob.
	IDs() ([]string, error)
}
