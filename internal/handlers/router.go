package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Router builds the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS([]string{"*"}))

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	r.Post("/upload", h.HandleUpload)
	r.Get("/sessions", h.HandleSessions)
	r.Get("/summary/{id}", h.HandleSummary)
	r.Get("/translate/{id}", h.HandleTranslate)
	r.Get("/details/{id}", h.HandleDetails)
	r.Get("/details/translate/{id}", h.HandleTranslateDetails)
	r.Get("/references/{id}", h.HandleReferences)
	r.Get("/references/translate/{id}", h.HandleTranslateReferences)
	r.Get("/images/{id}", h.HandleImages)
	r.Post("/images/label/{id}", h.HandleLabelImages)
	r.Get("/images/export/{id}", h.HandleExport)
	r.Post("/identify-organ-image", h.HandleIdentify)

	r.Get("/files/*", h.staticHandler("/files/", h.pipeline.UploadDir()))
	r.Get("/organs/*", h.staticHandler("/organs/", h.pipeline.OrganImageDir()))

	return r
}
