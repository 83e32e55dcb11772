package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vocalless/vocalless/internal/api/response"
)

const maxUploadBytes = 512 << 20

var allowedAudioExt = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".opus": true,
}

// NewUploadHandler returns an http.HandlerFunc for POST /api/v1/uploads.
// The stored name (not the client path) is the file reference to use in a
// subsequent job submission.
func NewUploadHandler(uploadsDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "multipart field 'file' is required", nil)
			return
		}
		defer file.Close()

		name := filepath.Base(header.Filename)
		ext := strings.ToLower(filepath.Ext(name))
		if !allowedAudioExt[ext] {
			response.Error(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT",
				"Unsupported audio format", map[string]string{"extension": ext})
			return
		}

		base := strings.TrimSuffix(name, filepath.Ext(name))
		base = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				return r
			case r == '-', r == '_', r == '.':
				return r
			case r == ' ':
				return '_'
			}
			return -1
		}, base)
		if base == "" {
			base = "upload"
		}
		stored := fmt.Sprintf("%s_%s%s", uuid.New().String()[:8], base, ext)
		dst, err := os.Create(filepath.Join(uploadsDir, stored))
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store upload", nil)
			return
		}
		defer dst.Close()

		written, err := io.Copy(dst, file)
		if err != nil {
			os.Remove(dst.Name())
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store upload", nil)
			return
		}

		response.Created(w, map[string]any{
			"file":     stored,
			"filename": name,
			"size":     written,
		})
	}
}
