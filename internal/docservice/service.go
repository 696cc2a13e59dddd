// Package docservice coordinates the content store, catalog, and external
// capabilities behind the resource API: uploads, copy-on-write mutations,
// derived artifacts, and retrieval.
package docservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/convert"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/ocr"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/storage"
)

// Notifier receives resource lifecycle events. The SSE broker implements it.
type Notifier interface {
	Publish(event, id string)
}

// Service coordinates storage, catalog, and capability operations.
type Service struct {
	store    storage.Provider
	db       catalog.Store
	engine   document.Engine
	renderer render.Renderer
	ocr      ocr.Recognizer
	conv     convert.Converter
	events   Notifier
}

// NewService creates a new document service. events may be nil.
func NewService(store storage.Provider, db catalog.Store, engine document.Engine,
	renderer render.Renderer, recognizer ocr.Recognizer, conv convert.Converter, events Notifier) *Service {
	return &Service{
		store:    store,
		db:       db,
		engine:   engine,
		renderer: renderer,
		ocr:      recognizer,
		conv:     conv,
		events:   events,
	}
}

func (s *Service) publish(event, id string) {
	if s.events != nil {
		s.events.Publish(event, id)
	}
}

// CreateResource persists uploaded document bytes under a fresh identifier
// and returns the initial record.
func (s *Service) CreateResource(_ context.Context, filename string, content []byte) (*models.Resource, error) {
	doc, err := s.engine.Load(content)
	if err != nil {
		return nil, err
	}

	rec := models.Resource{
		ID:        ident.New(),
		Kind:      models.KindOriginalUpload,
		Filename:  filename,
		SizeBytes: int64(len(content)),
		PageCount: doc.PageCount(),
		Checksum:  checksum.Sum(content),
		CreatedAt: time.Now().UTC(),
		Log:       []models.OperationRecord{},
	}

	if err := s.persist(rec, content); err != nil {
		return nil, err
	}
	s.publish("resource.created", rec.ID)
	return &rec, nil
}

// RegisterDerived stores a derived artifact (extracted text, converted
// format) as a first-class resource with its own identifier and expiry
// clock. lineage may be empty. Extracted text is made searchable.
func (s *Service) RegisterDerived(_ context.Context, kind models.Kind, filename string, content []byte, lineage string) (*models.Resource, error) {
	if kind != models.KindExtractedText && kind != models.KindConvertedFormat {
		return nil, fmt.Errorf("%w: kind %q is not a derived kind", apperr.ErrInvalidParameter, kind)
	}

	rec := models.Resource{
		ID:        ident.New(),
		Kind:      kind,
		Filename:  filename,
		SizeBytes: int64(len(content)),
		Checksum:  checksum.Sum(content),
		Lineage:   lineage,
		CreatedAt: time.Now().UTC(),
		Log:       []models.OperationRecord{},
	}

	if err := s.persist(rec, content); err != nil {
		return nil, err
	}
	if kind == models.KindExtractedText {
		if err := s.db.IndexText(rec.ID, filename, string(content)); err != nil {
			return nil, err
		}
	}
	s.publish("resource.derived", rec.ID)
	return &rec, nil
}

// persist publishes the blob first and the record second; a failed record
// write removes the orphan blob so no partially visible resource survives.
func (s *Service) persist(rec models.Resource, content []byte) error {
	if err := s.store.Put(rec.ID, content); err != nil {
		return err
	}
	if err := s.db.Insert(rec); err != nil {
		_ = s.store.Delete(rec.ID)
		return err
	}
	return nil
}

// FetchMetadata returns the full record for id.
func (s *Service) FetchMetadata(_ context.Context, id string) (*models.Resource, error) {
	return s.db.Get(id)
}

// FetchContent returns the raw bytes for id plus a suggested filename.
// A blob missing underneath a live record (sweeper race) surfaces as a
// clean not-found.
func (s *Service) FetchContent(_ context.Context, id string) ([]byte, string, error) {
	rec, err := s.db.Get(id)
	if err != nil {
		return nil, "", err
	}
	data, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNoBlob) {
			return nil, "", fmt.Errorf("%w: %s", apperr.ErrNotFound, id)
		}
		return nil, "", err
	}
	return data, suggestedFilename(rec), nil
}

func suggestedFilename(rec *models.Resource) string {
	if rec.Filename != "" {
		return rec.Filename
	}
	switch rec.Kind {
	case models.KindExtractedText:
		return rec.ID + ".txt"
	default:
		return rec.ID + ".pdf"
	}
}

// ListResources returns records newest-first with an optional kind filter.
func (s *Service) ListResources(_ context.Context, limit, offset int, kind string) ([]models.Resource, int, error) {
	return s.db.List(limit, offset, kind)
}

// DeleteResource removes the record and then the blob. Both halves are
// idempotent, so racing deletes and sweeper retries are harmless.
func (s *Service) DeleteResource(_ context.Context, id string) error {
	if _, err := s.db.Get(id); err != nil {
		return err
	}
	if err := s.db.Delete(id); err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.publish("resource.deleted", id)
	return nil
}

// SearchText searches indexed extracted text.
func (s *Service) SearchText(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	return s.db.Search(query, limit)
}

// PageText is one page's recognized text in a batch extraction artifact.
type PageText struct {
	PageIndex int    `json:"page_index"`
	Text      string `json:"text"`
}

// ExtractPageText renders one page, preprocesses it, runs recognition, and
// registers the result as an extracted-text resource with lineage.
func (s *Service) ExtractPageText(ctx context.Context, id string, pageIndex int) (*models.Resource, string, error) {
	rec, data, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, "", err
	}

	text, err := s.recognizePage(ctx, data, pageIndex)
	if err != nil {
		return nil, "", err
	}

	artifact, err := s.RegisterDerived(ctx, models.KindExtractedText,
		filenameStem(rec.Filename)+".txt", []byte(text), id)
	if err != nil {
		return nil, "", err
	}
	return artifact, text, nil
}

// ExtractAllText runs recognition across every page and registers a single
// JSON artifact of per-page results.
func (s *Service) ExtractAllText(ctx context.Context, id string) (*models.Resource, []PageText, error) {
	rec, data, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	pages, err := s.renderer.PageCount(data)
	if err != nil {
		return nil, nil, err
	}

	results := make([]PageText, 0, pages)
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		text, err := s.recognizePage(ctx, data, i)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, PageText{PageIndex: i, Text: text})
	}

	body, err := json.Marshal(results)
	if err != nil {
		return nil, nil, fmt.Errorf("docservice: marshal results: %w", err)
	}
	artifact, err := s.RegisterDerived(ctx, models.KindExtractedText,
		filenameStem(rec.Filename)+".json", body, id)
	if err != nil {
		return nil, nil, err
	}

	// Index the plain concatenated text instead of the JSON wrapper.
	var plain strings.Builder
	for _, r := range results {
		plain.WriteString(r.Text)
		plain.WriteString("\n")
	}
	if err := s.db.IndexText(artifact.ID, artifact.Filename, plain.String()); err != nil {
		return nil, nil, err
	}
	return artifact, results, nil
}

// ExtractImageText runs recognition directly on an uploaded image and
// registers the result without document lineage.
func (s *Service) ExtractImageText(ctx context.Context, filename string, imageData []byte) (*models.Resource, string, error) {
	img, err := ocr.DecodeImage(imageData)
	if err != nil {
		return nil, "", err
	}
	png, err := ocr.EncodePNG(ocr.Preprocess(img))
	if err != nil {
		return nil, "", err
	}
	text, err := s.ocr.Recognize(ctx, png)
	if err != nil {
		return nil, "", err
	}

	artifact, err := s.RegisterDerived(ctx, models.KindExtractedText,
		filenameStem(filename)+".txt", []byte(text), "")
	if err != nil {
		return nil, "", err
	}
	return artifact, text, nil
}

// ConvertResource converts a document to the target format and registers
// the output as a converted-format resource with lineage.
func (s *Service) ConvertResource(ctx context.Context, id, target string) (*models.Resource, error) {
	format, err := convert.ParseFormat(target)
	if err != nil {
		return nil, err
	}

	rec, data, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := s.conv.Convert(ctx, data, format)
	if err != nil {
		return nil, err
	}

	return s.RegisterDerived(ctx, models.KindConvertedFormat,
		filenameStem(rec.Filename)+format.Ext(), out, id)
}

func (s *Service) loadDocument(_ context.Context, id string) (*models.Resource, []byte, error) {
	rec, err := s.db.Get(id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNoBlob) {
			return nil, nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, id)
		}
		return nil, nil, err
	}
	return rec, data, nil
}

func (s *Service) recognizePage(ctx context.Context, pdf []byte, pageIndex int) (string, error) {
	img, err := s.renderer.PageImage(pdf, pageIndex)
	if err != nil {
		return "", err
	}
	png, err := ocr.EncodePNG(ocr.Preprocess(img))
	if err != nil {
		return "", err
	}
	return s.ocr.Recognize(ctx, png)
}

func filenameStem(name string) string {
	if name == "" {
		return "document"
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
