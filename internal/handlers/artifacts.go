package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pipeline.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, map[string]string{"summary": summary})
}

func (h *Handler) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	language, ok := h.language(w, r)
	if !ok {
		return
	}
	translated, err := h.pipeline.Translation(r.Context(), chi.URLParam(r, "id"), language)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, map[string]string{"language": language, "summary": translated})
}

func (h *Handler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.pipeline.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, map[string]string{"details": details})
}

func (h *Handler) HandleTranslateDetails(w http.ResponseWriter, r *http.Request) {
	language, ok := h.language(w, r)
	if !ok {
		return
	}
	details, err := h.pipeline.TranslatedDetails(r.Context(), chi.URLParam(r, "id"), language)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, map[string]string{"language": language, "details": details})
}

func (h *Handler) HandleReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := h.pipeline.References(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, map[string][]string{"references": refs})
}

func (h *Handler) HandleTranslateReferences(w http.ResponseWriter, r *http.Request) {
	language, ok := h.language(w, r)
	if !ok {
		return
	}
	refs, err := h.pipeline.TranslatedReferences(r.Context(), chi.URLParam(r, "id"), language)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{"language": language, "references": refs})
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.pipeline.Sessions())
}

func (h *Handler) language(w http.ResponseWriter, r *http.Request) (string, bool) {
	language := r.URL.Query().Get("language")
	if language == "" {
		h.writeError(w, "language query parameter is required", http.StatusBadRequest)
		return "", false
	}
	return language, true
}
