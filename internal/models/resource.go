// Package models defines the resource record and operation types shared by
// the catalog, pipeline, and API layers.
package models

import "time"

// Kind classifies a stored resource.
type Kind string

const (
	KindOriginalUpload  Kind = "original-upload"
	KindEditedVersion   Kind = "edited-version"
	KindExtractedText   Kind = "extracted-text"
	KindConvertedFormat Kind = "converted-format"
)

// Valid reports whether k is a known resource kind.
func (k Kind) Valid() bool {
	switch k {
	case KindOriginalUpload, KindEditedVersion, KindExtractedText, KindConvertedFormat:
		return true
	}
	return false
}

// Document reports whether resources of this kind carry a page count.
func (k Kind) Document() bool {
	return k == KindOriginalUpload || k == KindEditedVersion
}

// Resource is one identifier-addressed artifact: a document or an output
// derived from one. Content blobs are immutable once published; every edit
// produces a new Resource with Lineage pointing back at its source.
type Resource struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	Filename   string            `json:"filename,omitempty"`
	SizeBytes  int64             `json:"size_bytes"`
	PageCount  int               `json:"page_count,omitempty"`
	Checksum   string            `json:"checksum"`
	Lineage    string            `json:"lineage,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	ModifiedAt *time.Time        `json:"modified_at,omitempty"`
	Log        []OperationRecord `json:"operation_log"`
}

// OperationRecord is one immutable entry in a resource's operation log.
// Insertion order equals application order; the log is append-only.
type OperationRecord struct {
	Seq       int       `json:"seq"`
	Type      OpType    `json:"type"`
	Params    string    `json:"params"`
	AppliedAt time.Time `json:"applied_at"`
}
