// Package render rasterises PDF pages through MuPDF (go-fitz) for the OCR
// and image-conversion paths. It never edits documents; that is the
// pipeline's engine.
package render

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/starford/folio/internal/apperr"
)

// Renderer turns document pages into images.
type Renderer interface {
	// PageImage renders the page at pageIndex (zero-based).
	PageImage(pdf []byte, pageIndex int) (image.Image, error)
	// PageCount returns the number of pages in pdf.
	PageCount(pdf []byte) (int, error)
}

// DefaultDPI doubles the PDF's native 72 dpi so small glyphs survive OCR.
const DefaultDPI = 144

// Fitz implements Renderer with MuPDF.
type Fitz struct {
	DPI float64
}

// NewFitz returns a renderer at DefaultDPI.
func NewFitz() *Fitz {
	return &Fitz{DPI: DefaultDPI}
}

// PageImage renders one page to an image.
func (f *Fitz) PageImage(pdf []byte, pageIndex int) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", apperr.ErrCapabilityFault, err)
	}
	defer doc.Close()

	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return nil, fmt.Errorf("%w: page %d of %d", apperr.ErrInvalidPageIndex, pageIndex, doc.NumPage())
	}

	dpi := f.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	img, err := doc.ImageDPI(pageIndex, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: render page %d: %v", apperr.ErrCapabilityFault, pageIndex, err)
	}
	return img, nil
}

// PageCount returns the page count of pdf.
func (f *Fitz) PageCount(pdf []byte) (int, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return 0, fmt.Errorf("%w: open: %v", apperr.ErrCapabilityFault, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
