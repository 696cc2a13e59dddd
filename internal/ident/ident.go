// Package ident generates the opaque identifiers that address every stored
// resource. IDs are random UUIDv4 strings: collision-resistant for the life
// of the store and never recycled, even after deletion.
package ident

import "github.com/google/uuid"

// New returns a fresh resource identifier.
func New() string {
	return uuid.NewString()
}
