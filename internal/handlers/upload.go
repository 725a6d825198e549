package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
)

// multipartOverhead is allowed on top of the file limit for form boundaries and headers.
const multipartOverhead = 1 << 20

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.pipeline.Ingest(r.Context(), filename, data)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, result)
}

func (h *Handler) HandleIdentify(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	width, height, err := imageDimensions(data)
	if err != nil {
		h.writeError(w, "Uploaded file is not a supported image", http.StatusBadRequest)
		return
	}
	slog.Info("Identifying uploaded image", "filename", filename, "width", width, "height", height)

	result, err := h.pipeline.IdentifyImage(r.Context(), filename, data)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, result)
}

// readUpload reads the multipart "file" field, writing the error response itself on failure.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, "File too large", http.StatusRequestEntityTooLarge)
			return nil, "", false
		}
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return nil, "", false
	}

	if int64(len(data)) > h.maxUploadBytes {
		h.writeError(w, fmt.Sprintf("File too large (max %d bytes)", h.maxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, "", false
	}

	return data, header.Filename, true
}

func imageDimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
