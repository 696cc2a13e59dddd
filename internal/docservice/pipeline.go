package docservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// ApplyOperations runs an ordered operation batch against the source
// resource and publishes the result as a new resource (copy-on-write). The
// source is never modified, so concurrent applies on the same source are
// safe. Any failure aborts the whole call: nothing is persisted and the
// working document is discarded.
func (s *Service) ApplyOperations(ctx context.Context, sourceID string, ops []models.Operation) (*models.Resource, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: empty operation list", apperr.ErrInvalidParameter)
	}

	src, err := s.db.Get(sourceID)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Get(sourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNoBlob) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, sourceID)
		}
		return nil, err
	}

	doc, err := s.engine.Load(data)
	if err != nil {
		return nil, err
	}

	applied := make([]models.OperationRecord, 0, len(ops))
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		if err := s.applyOne(doc, op); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		applied = append(applied, models.OperationRecord{
			Seq:       len(src.Log) + i,
			Type:      op.Type,
			Params:    op.ParamJSON(),
			AppliedAt: time.Now().UTC(),
		})
	}

	out, err := doc.Bytes()
	if err != nil {
		return nil, err
	}

	// Re-derive the page count from the finished bytes rather than trusting
	// the running tally.
	final, err := s.engine.Load(out)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := models.Resource{
		ID:         ident.New(),
		Kind:       models.KindEditedVersion,
		Filename:   src.Filename,
		SizeBytes:  int64(len(out)),
		PageCount:  final.PageCount(),
		Checksum:   checksum.Sum(out),
		Lineage:    sourceID,
		CreatedAt:  now,
		ModifiedAt: &now,
		Log:        append(append([]models.OperationRecord{}, src.Log...), applied...),
	}

	if err := s.persist(rec, out); err != nil {
		return nil, err
	}
	s.publish("resource.edited", rec.ID)
	return &rec, nil
}

// applyOne dispatches a single validated operation against the working
// document, bounds-checking page-addressed operations against its current
// page range (earlier removals in the batch have already shifted it).
func (s *Service) applyOne(doc document.Document, op models.Operation) error {
	switch op.Type {
	case models.OpMergePages:
		ref, err := s.resolveMergeSource(op.SourceID)
		if err != nil {
			return err
		}
		return doc.AppendPages(ref)
	case models.OpInsertText:
		if err := checkPage(doc, op.PageIndex); err != nil {
			return err
		}
		size := op.Size
		if size == 0 {
			size = models.DefaultFontSize
		}
		return doc.InsertText(op.PageIndex, op.Text, op.X, op.Y, size)
	case models.OpInsertImage:
		if err := checkPage(doc, op.PageIndex); err != nil {
			return err
		}
		raw, err := op.DecodeImage()
		if err != nil {
			return err
		}
		return doc.InsertImage(op.PageIndex, raw, op.X, op.Y, op.Width, op.Height)
	case models.OpRemovePage:
		if err := checkPage(doc, op.PageIndex); err != nil {
			return err
		}
		return doc.RemovePage(op.PageIndex)
	case models.OpRotatePage:
		if err := checkPage(doc, op.PageIndex); err != nil {
			return err
		}
		return doc.RotatePage(op.PageIndex, op.Angle)
	}
	return fmt.Errorf("%w: unknown operation %q", apperr.ErrInvalidParameter, op.Type)
}

func checkPage(doc document.Document, pageIndex int) error {
	if pageIndex < 0 || pageIndex >= doc.PageCount() {
		return fmt.Errorf("%w: page %d of %d", apperr.ErrInvalidPageIndex, pageIndex, doc.PageCount())
	}
	return nil
}

// resolveMergeSource loads the referenced resource's content and returns it
// as a working document. The reference must resolve at execution time;
// otherwise the whole apply fails.
func (s *Service) resolveMergeSource(refID string) (document.Document, error) {
	data, err := s.store.Get(refID)
	if err != nil {
		if errors.Is(err, storage.ErrNoBlob) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrMergeSourceNotFound, refID)
		}
		return nil, err
	}
	return s.engine.Load(data)
}
