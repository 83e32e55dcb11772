package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/vocalless/vocalless/internal/api/response"
)

// NewFilesHandler returns an http.HandlerFunc serving produced artifacts from
// the output directory under GET /output/*. Appending ?download=true forces an
// attachment disposition.
func NewFilesHandler(outputDir string) http.HandlerFunc {
	root, err := filepath.Abs(outputDir)
	if err != nil {
		root = outputDir
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rel := chi.URLParam(r, "*")
		if rel == "" || !filepath.IsLocal(rel) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "File not found", nil)
			return
		}

		path := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "File not found", nil)
			return
		}

		if r.URL.Query().Get("download") == "true" {
			w.Header().Set("Content-Disposition",
				fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
		}
		http.ServeFile(w, r, path)
	}
}
