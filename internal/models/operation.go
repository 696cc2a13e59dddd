package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
)

// OpType names one typed document edit.
type OpType string

const (
	OpInsertText  OpType = "insert-text"
	OpInsertImage OpType = "insert-image"
	OpRemovePage  OpType = "remove-page"
	OpRotatePage  OpType = "rotate-page"
	OpMergePages  OpType = "merge-pages"
)

// Operation is one parameterised edit in an apply batch. Fields are a union
// over all operation types; Validate enforces the per-type subset.
type Operation struct {
	Type      OpType  `json:"type"`
	PageIndex int     `json:"page_index"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Size      float64 `json:"size,omitempty"`
	Text      string  `json:"text,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	ImageData string  `json:"image_data,omitempty"`
	Angle     int     `json:"angle,omitempty"`
	SourceID  string  `json:"source_id,omitempty"`
}

// DefaultFontSize is used for insert-text when no size is given.
const DefaultFontSize = 12

// Validate checks structural parameters that do not depend on the working
// document. Page bounds are checked later against the live document.
func (op Operation) Validate() error {
	err := validation.ValidateStruct(&op,
		validation.Field(&op.Type, validation.Required,
			validation.In(OpInsertText, OpInsertImage, OpRemovePage, OpRotatePage, OpMergePages)),
		validation.Field(&op.PageIndex, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidParameter, err)
	}

	switch op.Type {
	case OpInsertText:
		if op.Text == "" {
			return fmt.Errorf("%w: insert-text requires text", apperr.ErrInvalidParameter)
		}
		if op.Size < 0 {
			return fmt.Errorf("%w: negative font size", apperr.ErrInvalidParameter)
		}
	case OpInsertImage:
		if op.ImageData == "" {
			return fmt.Errorf("%w: insert-image requires image_data", apperr.ErrInvalidImageData)
		}
		if op.Width <= 0 || op.Height <= 0 {
			return fmt.Errorf("%w: insert-image requires positive width and height", apperr.ErrInvalidParameter)
		}
	case OpRotatePage:
		if op.Angle%90 != 0 {
			return fmt.Errorf("%w: rotation angle %d is not a multiple of 90", apperr.ErrInvalidParameter, op.Angle)
		}
	case OpMergePages:
		if op.SourceID == "" {
			return fmt.Errorf("%w: merge-pages requires source_id", apperr.ErrInvalidParameter)
		}
	}
	return nil
}

// DecodeImage returns the raw image bytes of an insert-image operation.
func (op Operation) DecodeImage() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(op.ImageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidImageData, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", apperr.ErrInvalidImageData)
	}
	return raw, nil
}

// ParamJSON renders the operation's parameters for the operation log,
// omitting bulky payloads.
func (op Operation) ParamJSON() string {
	logged := op
	if logged.ImageData != "" {
		logged.ImageData = fmt.Sprintf("<%d bytes base64>", len(op.ImageData))
	}
	b, err := json.Marshal(logged)
	if err != nil {
		return "{}"
	}
	return string(b)
}
