// Package testutil provides shared test helpers: temp stores, temp
// catalogs, and a fake document engine with a JSON page model.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/storage"
)

// TestCatalog creates a temporary SQLite catalog that is automatically
// cleaned up.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary content store.
func TestStore(t *testing.T) *storage.FS {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// PNGBytes encodes a small valid PNG for image upload tests.
func PNGBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// FakePage is one page in the fake engine's document model. Label survives
// removals and merges, so tests can observe index-shift semantics.
type FakePage struct {
	Label    string   `json:"label"`
	Rotation int      `json:"rotation"`
	Stamps   []string `json:"stamps,omitempty"`
}

type fakeModel struct {
	Pages []FakePage `json:"pages"`
}

// FakeEngine implements document.Engine over a JSON page model.
type FakeEngine struct{}

// NewFakePDF returns fake document bytes with n labelled pages (p0..pn-1).
func NewFakePDF(n int) []byte {
	m := fakeModel{Pages: make([]FakePage, n)}
	for i := range m.Pages {
		m.Pages[i] = FakePage{Label: fmt.Sprintf("p%d", i)}
	}
	b, _ := json.Marshal(m)
	return b
}

// DecodeFakePDF parses fake document bytes back into pages.
func DecodeFakePDF(t *testing.T, data []byte) []FakePage {
	t.Helper()
	var m fakeModel
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode fake pdf: %v", err)
	}
	return m.Pages
}

// Load implements document.Engine.
func (FakeEngine) Load(data []byte) (document.Document, error) {
	var m fakeModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCapabilityFault, err)
	}
	return &fakeDocument{pages: m.Pages}, nil
}

type fakeDocument struct {
	pages []FakePage
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) InsertText(pageIndex int, text string, x, y, size float64) error {
	d.pages[pageIndex].Stamps = append(d.pages[pageIndex].Stamps,
		fmt.Sprintf("text:%s@%.0f,%.0f size %.0f", text, x, y, size))
	return nil
}

func (d *fakeDocument) InsertImage(pageIndex int, image []byte, x, y, w, h float64) error {
	d.pages[pageIndex].Stamps = append(d.pages[pageIndex].Stamps,
		fmt.Sprintf("image:%d bytes@%.0f,%.0f %gx%g", len(image), x, y, w, h))
	return nil
}

func (d *fakeDocument) RemovePage(pageIndex int) error {
	d.pages = append(d.pages[:pageIndex], d.pages[pageIndex+1:]...)
	return nil
}

func (d *fakeDocument) RotatePage(pageIndex int, angle int) error {
	d.pages[pageIndex].Rotation = angle
	return nil
}

func (d *fakeDocument) AppendPages(other document.Document) error {
	src, ok := other.(*fakeDocument)
	if !ok {
		return fmt.Errorf("%w: foreign document", apperr.ErrCapabilityFault)
	}
	d.pages = append(d.pages, src.pages...)
	return nil
}

func (d *fakeDocument) Bytes() ([]byte, error) {
	return json.Marshal(fakeModel{Pages: d.pages})
}
