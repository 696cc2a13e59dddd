package api

import (
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/docservice"
	"github.com/starford/folio/internal/models"
)

type resourceResponse struct {
	ID         string              `json:"id"`
	Kind       string              `json:"kind"`
	Filename   string              `json:"filename"`
	SizeBytes  int64               `json:"size_bytes"`
	PageCount  int                 `json:"page_count"`
	Checksum   string              `json:"checksum"`
	Lineage    string              `json:"lineage,omitempty"`
	CreatedAt  string              `json:"created_at"`
	ModifiedAt string              `json:"modified_at,omitempty"`
	Log        []operationLogEntry `json:"operation_log,omitempty"`
}

type operationLogEntry struct {
	Seq       int    `json:"seq"`
	Type      string `json:"type"`
	Params    string `json:"params"`
	AppliedAt string `json:"applied_at"`
}

func toResourceResponse(rec *models.Resource) resourceResponse {
	resp := resourceResponse{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		Filename:  rec.Filename,
		SizeBytes: rec.SizeBytes,
		PageCount: rec.PageCount,
		Checksum:  rec.Checksum,
		Lineage:   rec.Lineage,
		CreatedAt: rec.CreatedAt.Format(timeLayout),
	}
	if rec.ModifiedAt != nil {
		resp.ModifiedAt = rec.ModifiedAt.Format(timeLayout)
	}
	for _, op := range rec.Log {
		resp.Log = append(resp.Log, operationLogEntry{
			Seq:       op.Seq,
			Type:      string(op.Type),
			Params:    op.Params,
			AppliedAt: op.AppliedAt.Format(timeLayout),
		})
	}
	return resp
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type listResponse struct {
	Resources []resourceResponse `json:"resources"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type applyRequest struct {
	Operations []models.Operation `json:"operations"`
}

type extractPageRequest struct {
	PageIndex int `json:"page_index"`
}

type extractPageResponse struct {
	ResourceID string `json:"resource_id"`
	PageIndex  int    `json:"page_index"`
	Text       string `json:"text"`
}

type extractAllResponse struct {
	ResourceID string                `json:"resource_id"`
	Pages      []docservice.PageText `json:"pages"`
}

type extractImageResponse struct {
	ResourceID string `json:"resource_id"`
	Text       string `json:"text"`
}

type convertRequest struct {
	Target string `json:"target"`
}

type searchResponse struct {
	Results []catalog.SearchResult `json:"results"`
}
