package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) HandleImages(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.Images(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, result)
}

func (h *Handler) HandleLabelImages(w http.ResponseWriter, r *http.Request) {
	results, err := h.pipeline.LabelImages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{"results": results})
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var buf bytes.Buffer
	if err := h.pipeline.Export(r.Context(), id, &buf); err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-labels.parquet"`, id))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write export", "session_id", id, "err", err)
	}
}
