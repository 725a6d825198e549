package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// staticHandler serves files below root for URLs under prefix.
func (h *Handler) staticHandler(prefix, root string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(r.URL.Path, prefix)

		// Prevent directory traversal attacks
		if rel == "" || strings.Contains(rel, "\\") || slices.Contains(strings.Split(rel, "/"), "..") {
			h.writeError(w, "Invalid file path", http.StatusBadRequest)
			return
		}

		fullPath := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(fullPath)
		if err != nil || info.IsDir() {
			h.writeError(w, "File not found", http.StatusNotFound)
			return
		}

		http.ServeFile(w, r, fullPath)
	}
}
