package docservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/convert"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/ocr"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/testutil"
)

type testEnv struct {
	store *storage.FS
	db    *catalog.DB
}

// fakeRenderer renders fake-engine documents: one blank image per page.
type fakeRenderer struct{}

func (fakeRenderer) PageImage(pdf []byte, pageIndex int) (image.Image, error) {
	var m struct {
		Pages []json.RawMessage `json:"pages"`
	}
	if err := json.Unmarshal(pdf, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCapabilityFault, err)
	}
	if pageIndex < 0 || pageIndex >= len(m.Pages) {
		return nil, fmt.Errorf("%w: page %d", apperr.ErrInvalidPageIndex, pageIndex)
	}
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

func (fakeRenderer) PageCount(pdf []byte) (int, error) {
	var m struct {
		Pages []json.RawMessage `json:"pages"`
	}
	if err := json.Unmarshal(pdf, &m); err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrCapabilityFault, err)
	}
	return len(m.Pages), nil
}

type fakeRecognizer struct {
	text string
	err  error
}

func (f fakeRecognizer) Recognize(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

type fakeConverter struct{}

func (fakeConverter) Convert(_ context.Context, _ []byte, target convert.Format) ([]byte, error) {
	return []byte("converted-" + string(target)), nil
}

func testService(t *testing.T) (*Service, *testEnv) {
	t.Helper()
	env := &testEnv{store: testutil.TestStore(t), db: testutil.TestCatalog(t)}
	svc := NewService(env.store, env.db, testutil.FakeEngine{}, fakeRenderer{},
		fakeRecognizer{text: "recognized text"}, fakeConverter{}, nil)
	return svc, env
}

func mustCreate(t *testing.T, svc *Service, filename string, content []byte) *models.Resource {
	t.Helper()
	rec, err := svc.CreateResource(context.Background(), filename, content)
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	return rec
}

func countResources(t *testing.T, env *testEnv) int {
	t.Helper()
	_, total, err := env.db.List(1, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	return total
}

func TestCreateResource(t *testing.T) {
	svc, _ := testService(t)
	rec := mustCreate(t, svc, "report.pdf", testutil.NewFakePDF(3))

	if rec.ID == "" || rec.Kind != models.KindOriginalUpload {
		t.Errorf("record = %+v", rec)
	}
	if rec.PageCount != 3 {
		t.Errorf("page count = %d", rec.PageCount)
	}
	if rec.ModifiedAt != nil {
		t.Error("fresh upload must not carry modified_at")
	}

	got, err := svc.FetchMetadata(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if got.Filename != "report.pdf" || len(got.Log) != 0 {
		t.Errorf("fetched = %+v", got)
	}
}

func TestCreateResourceRejectsGarbage(t *testing.T) {
	svc, env := testService(t)
	before := countResources(t, env)
	_, err := svc.CreateResource(context.Background(), "x.pdf", []byte("not a document"))
	if !errors.Is(err, apperr.ErrCapabilityFault) {
		t.Fatalf("err = %v", err)
	}
	if got := countResources(t, env); got != before {
		t.Error("record persisted for rejected upload")
	}
}

func TestFetchContent(t *testing.T) {
	svc, _ := testService(t)
	content := testutil.NewFakePDF(2)
	rec := mustCreate(t, svc, "invoice.pdf", content)

	data, filename, err := svc.FetchContent(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if string(data) != string(content) {
		t.Error("content mismatch")
	}
	if filename != "invoice.pdf" {
		t.Errorf("filename = %q", filename)
	}
}

func TestFetchContentMissing(t *testing.T) {
	svc, _ := testService(t)
	if _, _, err := svc.FetchContent(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestFetchContentBlobSweptUnderneath(t *testing.T) {
	svc, env := testService(t)
	rec := mustCreate(t, svc, "a.pdf", testutil.NewFakePDF(1))

	// Simulate the sweeper removing the blob between record and blob reads.
	_ = env.store.Delete(rec.ID)

	if _, _, err := svc.FetchContent(context.Background(), rec.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestDeleteResource(t *testing.T) {
	svc, env := testService(t)
	rec := mustCreate(t, svc, "a.pdf", testutil.NewFakePDF(1))

	if err := svc.DeleteResource(context.Background(), rec.ID); err != nil {
		t.Fatalf("DeleteResource: %v", err)
	}
	if _, err := svc.FetchMetadata(context.Background(), rec.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("metadata err = %v", err)
	}
	if _, err := env.store.Get(rec.ID); !errors.Is(err, storage.ErrNoBlob) {
		t.Errorf("blob err = %v", err)
	}
	if err := svc.DeleteResource(context.Background(), rec.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestRegisterDerivedIsSearchable(t *testing.T) {
	svc, _ := testService(t)
	doc := mustCreate(t, svc, "contract.pdf", testutil.NewFakePDF(1))

	art, err := svc.RegisterDerived(context.Background(), models.KindExtractedText,
		"contract.txt", []byte("the signing bonus clause"), doc.ID)
	if err != nil {
		t.Fatalf("RegisterDerived: %v", err)
	}
	if art.Lineage != doc.ID || art.Kind != models.KindExtractedText {
		t.Errorf("artifact = %+v", art)
	}

	hits, err := svc.SearchText(context.Background(), "bonus", 10)
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != art.ID {
		t.Errorf("hits = %+v", hits)
	}
}

func TestRegisterDerivedRejectsDocumentKind(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.RegisterDerived(context.Background(), models.KindOriginalUpload, "x.pdf", []byte("x"), "")
	if !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Errorf("err = %v", err)
	}
}

func TestExtractPageText(t *testing.T) {
	svc, _ := testService(t)
	doc := mustCreate(t, svc, "scan.pdf", testutil.NewFakePDF(2))

	art, text, err := svc.ExtractPageText(context.Background(), doc.ID, 1)
	if err != nil {
		t.Fatalf("ExtractPageText: %v", err)
	}
	if text != "recognized text" {
		t.Errorf("text = %q", text)
	}
	if art.Kind != models.KindExtractedText || art.Lineage != doc.ID {
		t.Errorf("artifact = %+v", art)
	}
	if art.Filename != "scan.txt" {
		t.Errorf("filename = %q", art.Filename)
	}

	data, _, err := svc.FetchContent(context.Background(), art.ID)
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if string(data) != "recognized text" {
		t.Errorf("artifact content = %q", data)
	}
}

func TestExtractPageTextBadIndex(t *testing.T) {
	svc, _ := testService(t)
	doc := mustCreate(t, svc, "scan.pdf", testutil.NewFakePDF(2))
	if _, _, err := svc.ExtractPageText(context.Background(), doc.ID, 5); !errors.Is(err, apperr.ErrInvalidPageIndex) {
		t.Errorf("err = %v", err)
	}
}

func TestExtractAllText(t *testing.T) {
	svc, _ := testService(t)
	doc := mustCreate(t, svc, "scan.pdf", testutil.NewFakePDF(3))

	art, results, err := svc.ExtractAllText(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("ExtractAllText: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %+v", results)
	}
	for i, r := range results {
		if r.PageIndex != i || r.Text != "recognized text" {
			t.Errorf("result %d = %+v", i, r)
		}
	}

	data, _, err := svc.FetchContent(context.Background(), art.ID)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []PageText
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("artifact is not JSON: %v", err)
	}
	if len(decoded) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}

	// Searchable by the plain text, not the JSON wrapper.
	hits, err := svc.SearchText(context.Background(), "recognized", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Error("batch artifact not searchable")
	}
}

func TestExtractImageText(t *testing.T) {
	svc, _ := testService(t)

	png, err := ocr.EncodePNG(image.NewGray(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatal(err)
	}
	art, text, err := svc.ExtractImageText(context.Background(), "photo.png", png)
	if err != nil {
		t.Fatalf("ExtractImageText: %v", err)
	}
	if text != "recognized text" {
		t.Errorf("text = %q", text)
	}
	if art.Lineage != "" {
		t.Errorf("image extraction should carry no lineage, got %q", art.Lineage)
	}
	if art.Filename != "photo.txt" {
		t.Errorf("filename = %q", art.Filename)
	}
}

func TestExtractImageTextRejectsGarbage(t *testing.T) {
	svc, _ := testService(t)
	_, _, err := svc.ExtractImageText(context.Background(), "x.png", []byte("garbage"))
	if !errors.Is(err, apperr.ErrInvalidImageData) {
		t.Errorf("err = %v", err)
	}
}

func TestConvertResource(t *testing.T) {
	svc, _ := testService(t)
	doc := mustCreate(t, svc, "deck.pdf", testutil.NewFakePDF(1))

	art, err := svc.ConvertResource(context.Background(), doc.ID, "word")
	if err != nil {
		t.Fatalf("ConvertResource: %v", err)
	}
	if art.Kind != models.KindConvertedFormat || art.Lineage != doc.ID {
		t.Errorf("artifact = %+v", art)
	}
	if art.Filename != "deck.docx" {
		t.Errorf("filename = %q", art.Filename)
	}

	data, _, _ := svc.FetchContent(context.Background(), art.ID)
	if !strings.HasPrefix(string(data), "converted-") {
		t.Errorf("content = %q", data)
	}
}

func TestConvertResourceUnsupportedTarget(t *testing.T) {
	svc, _ := testService(t)
	doc := mustCreate(t, svc, "deck.pdf", testutil.NewFakePDF(1))
	if _, err := svc.ConvertResource(context.Background(), doc.ID, "gif"); !errors.Is(err, apperr.ErrUnsupportedFormat) {
		t.Errorf("err = %v", err)
	}
}

func TestIDsNeverReused(t *testing.T) {
	svc, _ := testService(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		rec := mustCreate(t, svc, "a.pdf", testutil.NewFakePDF(1))
		if seen[rec.ID] {
			t.Fatalf("id reused: %s", rec.ID)
		}
		seen[rec.ID] = true
		_ = svc.DeleteResource(context.Background(), rec.ID)
	}
}
