// Package document defines the document capability consumed by the mutation
// pipeline: loading a binary document, editing pages, and serializing the
// result. The engine is an opaque collaborator; the pipeline owns ordering,
// page-bound checks, and persistence.
package document

// Engine loads raw content into an editable in-memory document.
type Engine interface {
	// Load parses data and returns a working document, or ErrCapabilityFault
	// for malformed source bytes.
	Load(data []byte) (Document, error)
}

// Document is one in-memory working document. Implementations are not safe
// for concurrent use; each apply call owns its document exclusively.
// Page indices are zero-based. Implementations may assume indices are
// already bounds-checked by the caller.
type Document interface {
	// PageCount returns the current number of pages.
	PageCount() int
	// InsertText renders text at (x, y) on the given page in the given
	// font size (points, origin bottom-left).
	InsertText(pageIndex int, text string, x, y, size float64) error
	// InsertImage decodes image bytes and places them at (x, y) on the
	// given page, or returns ErrInvalidImageData.
	InsertImage(pageIndex int, image []byte, x, y, w, h float64) error
	// RemovePage deletes the page at pageIndex; later pages shift down.
	RemovePage(pageIndex int) error
	// RotatePage sets the page's rotation. The angle is already validated
	// to be a multiple of 90.
	RotatePage(pageIndex int, angle int) error
	// AppendPages appends every page of other, in order, to the end.
	AppendPages(other Document) error
	// Bytes serializes the current document state.
	Bytes() ([]byte, error)
}
