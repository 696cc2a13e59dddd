// Package apperr defines the sentinel errors shared across the store,
// pipeline, and API layers. Callers classify failures with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound means an identifier does not resolve to a stored resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPageIndex means an operation addressed a page outside the
	// working document's current range.
	ErrInvalidPageIndex = errors.New("invalid page index")
	// ErrInvalidParameter means an operation carried a malformed parameter,
	// e.g. a rotation angle that is not a multiple of 90.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidImageData means an insert-image payload could not be decoded.
	ErrInvalidImageData = errors.New("invalid image data")
	// ErrMergeSourceNotFound means a merge-pages reference did not resolve.
	ErrMergeSourceNotFound = errors.New("merge source not found")
	// ErrCapabilityFault means the document engine rejected its input.
	ErrCapabilityFault = errors.New("document capability fault")
	// ErrStorageFault means the durable medium rejected a read or write.
	ErrStorageFault = errors.New("storage fault")
	// ErrUnsupportedFormat means a conversion target is not supported.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrRecognitionFault means the OCR engine failed.
	ErrRecognitionFault = errors.New("recognition fault")
	// ErrConversionFault means the format converter failed.
	ErrConversionFault = errors.New("conversion fault")
)
