package document

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/starford/folio/internal/apperr"
)

// PDFEngine implements Engine on top of pdfcpu.
type PDFEngine struct {
	conf *model.Configuration
}

// NewPDFEngine creates a pdfcpu-backed engine with relaxed validation, so
// documents produced by sloppy generators still load.
func NewPDFEngine() *PDFEngine {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFEngine{conf: conf}
}

// Load verifies data parses as a PDF and returns a working document.
func (e *PDFEngine) Load(data []byte) (Document, error) {
	count, err := api.PageCount(bytes.NewReader(data), e.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %v", apperr.ErrCapabilityFault, err)
	}
	cur := make([]byte, len(data))
	copy(cur, data)
	return &pdfDocument{conf: e.conf, cur: cur, pages: count}, nil
}

// pdfDocument holds the serialized working state; every edit is one
// pdfcpu transform from the current bytes to the next.
type pdfDocument struct {
	conf  *model.Configuration
	cur   []byte
	pages int
}

func (d *pdfDocument) PageCount() int { return d.pages }

// transform runs one pdfcpu operation from the current state into a buffer
// and commits the result only on success.
func (d *pdfDocument) transform(op func(rs io.ReadSeeker, w io.Writer) error) error {
	var buf bytes.Buffer
	if err := op(bytes.NewReader(d.cur), &buf); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrCapabilityFault, err)
	}
	d.cur = buf.Bytes()
	return nil
}

func pageSelection(pageIndex int) []string {
	return []string{strconv.Itoa(pageIndex + 1)}
}

func (d *pdfDocument) InsertText(pageIndex int, text string, x, y, size float64) error {
	desc := fmt.Sprintf("points:%d, pos:bl, off:%.1f %.1f, scale:1 abs, rot:0, fillcol:#000000, op:1",
		int(size), x, y)
	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("%w: text stamp: %v", apperr.ErrCapabilityFault, err)
	}
	return d.transform(func(rs io.ReadSeeker, w io.Writer) error {
		return api.AddWatermarks(rs, w, pageSelection(pageIndex), wm, d.conf)
	})
}

// fitImage resamples raw image bytes to the requested box. The stamp renders
// at one point per pixel, so both requested dimensions are honored even when
// the box distorts the source aspect ratio.
func fitImage(raw []byte, w, h float64) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidImageData, err)
	}
	pw, ph := int(math.Round(w)), int(math.Round(h))
	if pw < 1 {
		pw = 1
	}
	if ph < 1 {
		ph = 1
	}
	out := imaging.Resize(src, pw, ph, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: encode image: %v", apperr.ErrCapabilityFault, err)
	}
	return buf.Bytes(), nil
}

func (d *pdfDocument) InsertImage(pageIndex int, img []byte, x, y, w, h float64) error {
	fitted, err := fitImage(img, w, h)
	if err != nil {
		return err
	}
	desc := fmt.Sprintf("pos:bl, off:%.1f %.1f, scale:1 abs, rot:0", x, y)
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(fitted), desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("%w: image stamp: %v", apperr.ErrCapabilityFault, err)
	}
	return d.transform(func(rs io.ReadSeeker, wr io.Writer) error {
		return api.AddWatermarks(rs, wr, pageSelection(pageIndex), wm, d.conf)
	})
}

func (d *pdfDocument) RemovePage(pageIndex int) error {
	err := d.transform(func(rs io.ReadSeeker, w io.Writer) error {
		return api.RemovePages(rs, w, pageSelection(pageIndex), d.conf)
	})
	if err != nil {
		return err
	}
	d.pages--
	return nil
}

// pageRotation reads the page's effective /Rotate value from the current
// document state.
func (d *pdfDocument) pageRotation(pageIndex int) (int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(d.cur), d.conf)
	if err != nil {
		return 0, fmt.Errorf("%w: read: %v", apperr.ErrCapabilityFault, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return 0, fmt.Errorf("%w: validate: %v", apperr.ErrCapabilityFault, err)
	}
	_, _, attrs, err := ctx.PageDict(pageIndex+1, false)
	if err != nil {
		return 0, fmt.Errorf("%w: page dict: %v", apperr.ErrCapabilityFault, err)
	}
	return attrs.Rotate, nil
}

// RotatePage sets the page's rotation to angle. pdfcpu rotates relative to
// the page's current value, so apply the difference.
func (d *pdfDocument) RotatePage(pageIndex int, angle int) error {
	current, err := d.pageRotation(pageIndex)
	if err != nil {
		return err
	}
	delta := ((angle-current)%360 + 360) % 360
	if delta == 0 {
		return nil
	}
	return d.transform(func(rs io.ReadSeeker, w io.Writer) error {
		return api.Rotate(rs, w, delta, pageSelection(pageIndex), d.conf)
	})
}

func (d *pdfDocument) AppendPages(other Document) error {
	src, ok := other.(*pdfDocument)
	if !ok {
		return fmt.Errorf("%w: cannot append foreign document", apperr.ErrCapabilityFault)
	}
	err := d.transform(func(rs io.ReadSeeker, w io.Writer) error {
		return api.MergeRaw([]io.ReadSeeker{rs, bytes.NewReader(src.cur)}, w, false, d.conf)
	})
	if err != nil {
		return err
	}
	d.pages += src.pages
	return nil
}

func (d *pdfDocument) Bytes() ([]byte, error) {
	out := make([]byte, len(d.cur))
	copy(out, d.cur)
	return out, nil
}
