package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/folio/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func errorBody(kind, msg string) errResponse {
	return errResponse{Error: msg, Kind: kind}
}

// writeError maps the apperr taxonomy onto HTTP statuses so every failure
// kind stays distinguishable to callers.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not_found", err.Error()))
	case errors.Is(err, apperr.ErrInvalidPageIndex):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_page_index", err.Error()))
	case errors.Is(err, apperr.ErrInvalidParameter):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_parameter", err.Error()))
	case errors.Is(err, apperr.ErrInvalidImageData):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_image_data", err.Error()))
	case errors.Is(err, apperr.ErrUnsupportedFormat):
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported_format", err.Error()))
	case errors.Is(err, apperr.ErrMergeSourceNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("merge_source_not_found", err.Error()))
	case errors.Is(err, apperr.ErrCapabilityFault):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("capability_fault", err.Error()))
	case errors.Is(err, apperr.ErrRecognitionFault):
		writeJSON(w, http.StatusBadGateway, errorBody("recognition_fault", "text recognition failed"))
	case errors.Is(err, apperr.ErrConversionFault):
		writeJSON(w, http.StatusBadGateway, errorBody("conversion_fault", "format conversion failed"))
	default:
		slog.Error("internal error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal", "internal error"))
	}
}
