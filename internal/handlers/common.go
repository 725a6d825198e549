package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
	"github.com/lehigh-university-libraries/anatomist/internal/pipeline"
)

// DefaultMaxUploadBytes bounds multipart request bodies.
const DefaultMaxUploadBytes = 25 << 20

type Handler struct {
	pipeline       *pipeline.Orchestrator
	maxUploadBytes int64
}

func New(p *pipeline.Orchestrator, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		pipeline:       p,
		maxUploadBytes: maxUploadBytes,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Warn(message, "status", code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("Unable to encode JSON error", "err", err)
	}
}

// writeDomainError maps a pipeline error to its HTTP status.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		h.writeError(w, "Invalid session_id", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrExtraction):
		h.writeError(w, "Could not extract document: "+err.Error(), http.StatusUnprocessableEntity)
	default:
		h.writeError(w, "Internal server error: "+err.Error(), http.StatusInternalServerError)
	}
}
