package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vocalless/vocalless/internal/api/response"
	"github.com/vocalless/vocalless/internal/media/ytdlp"
	"github.com/vocalless/vocalless/pkg/models"
)

// JobStore is the subset of the jobs store the handlers depend on.
type JobStore interface {
	Create(items []models.ItemSpec, opts models.JobOptions) models.Job
	Get(id uuid.UUID) (models.Job, error)
	List() []models.Job
	RequestCancel(id uuid.UUID) error
}

// Starter launches the background executor for a queued job.
type Starter interface {
	Start(jobID uuid.UUID)
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/jobs. It
// validates the submission, creates the job record, kicks off the executor,
// and returns the job id without waiting on any processing.
func NewSubmitHandler(store JobStore, starter Starter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Items []struct {
				URL  string `json:"url"`
				File string `json:"file"`
			} `json:"items"`
			ProduceVideo            bool  `json:"produce_video"`
			SaveLocally             *bool `json:"save_locally"`
			UploadToExternalService bool  `json:"upload_to_external_service"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if len(req.Items) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "at least one item is required", nil)
			return
		}

		items := make([]models.ItemSpec, 0, len(req.Items))
		for i, it := range req.Items {
			url := strings.TrimSpace(it.URL)
			file := strings.TrimSpace(it.File)
			if url == "" && file == "" {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"each item needs a url or a file reference", map[string]int{"index": i})
				return
			}
			if url != "" && file != "" {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"item cannot have both url and file", map[string]int{"index": i})
				return
			}
			items = append(items, models.ItemSpec{URL: ytdlp.CleanURL(url), File: file})
		}

		saveLocally := true
		if req.SaveLocally != nil {
			saveLocally = *req.SaveLocally
		}

		job := store.Create(items, models.JobOptions{
			ProduceVideo:            req.ProduceVideo,
			SaveLocally:             saveLocally,
			UploadToExternalService: req.UploadToExternalService,
		})
		starter.Start(job.ID)

		response.Accepted(w, map[string]string{"job_id": job.ID.String()})
	}
}
