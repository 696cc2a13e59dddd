package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/docservice"
	"github.com/starford/folio/internal/models"
)

// maxUploadBytes caps multipart bodies. Documents past this size are rejected
// before they reach the service.
const maxUploadBytes = 64 << 20

type Handler struct {
	svc *docservice.Service
}

func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: multipart body required", apperr.ErrInvalidParameter))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file field", apperr.ErrInvalidParameter))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: reading upload: %v", apperr.ErrStorageFault, err))
		return
	}

	rec, err := h.svc.CreateResource(r.Context(), header.Filename, content)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("resource uploaded",
		slog.String("id", rec.ID),
		slog.String("filename", rec.Filename),
		slog.Int("pages", rec.PageCount))
	writeJSON(w, http.StatusCreated, toResourceResponse(rec))
}

func (h *Handler) ApplyOperations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", apperr.ErrInvalidParameter))
		return
	}
	rec, err := h.svc.ApplyOperations(r.Context(), id, req.Operations)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("operations applied",
		slog.String("source", id),
		slog.String("result", rec.ID),
		slog.Int("count", len(req.Operations)))
	writeJSON(w, http.StatusCreated, toResourceResponse(rec))
}

func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.FetchMetadata(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceResponse(rec))
}

func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	content, filename, err := h.svc.FetchContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	ctype := mime.TypeByExtension(filepath.Ext(filename))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		slog.Warn("content write interrupted", slog.String("error", err.Error()))
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	var kind models.Kind
	if v := q.Get("kind"); v != "" {
		kind = models.Kind(v)
		if !kind.Valid() {
			writeError(w, fmt.Errorf("%w: unknown kind %q", apperr.ErrInvalidParameter, v))
			return
		}
	}
	recs, total, err := h.svc.ListResources(r.Context(), limit, offset, string(kind))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := listResponse{Resources: make([]resourceResponse, 0, len(recs)), Total: total, Limit: limit, Offset: offset}
	for i := range recs {
		resp.Resources = append(resp.Resources, toResourceResponse(&recs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteResource(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("resource deleted", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ExtractPageText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req extractPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", apperr.ErrInvalidParameter))
		return
	}
	artifact, text, err := h.svc.ExtractPageText(r.Context(), id, req.PageIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extractPageResponse{
		ResourceID: artifact.ID,
		PageIndex:  req.PageIndex,
		Text:       text,
	})
}

func (h *Handler) ExtractAllText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	artifact, pages, err := h.svc.ExtractAllText(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extractAllResponse{ResourceID: artifact.ID, Pages: pages})
}

func (h *Handler) ExtractImageText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: multipart body required", apperr.ErrInvalidParameter))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing image field", apperr.ErrInvalidParameter))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: reading upload: %v", apperr.ErrStorageFault, err))
		return
	}
	artifact, text, err := h.svc.ExtractImageText(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extractImageResponse{ResourceID: artifact.ID, Text: text})
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", apperr.ErrInvalidParameter))
		return
	}
	rec, err := h.svc.ConvertResource(r.Context(), id, req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("resource converted",
		slog.String("source", id),
		slog.String("result", rec.ID),
		slog.String("target", req.Target))
	writeJSON(w, http.StatusCreated, toResourceResponse(rec))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, fmt.Errorf("%w: query parameter q required", apperr.ErrInvalidParameter))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.SearchText(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}
