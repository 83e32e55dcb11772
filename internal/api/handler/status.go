package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vocalless/vocalless/internal/api/response"
	"github.com/vocalless/vocalless/internal/jobs"
	"github.com/vocalless/vocalless/pkg/models"
)

type statusResponse struct {
	JobID       string              `json:"job_id"`
	Status      string              `json:"status"`
	CurrentItem int                 `json:"current_item"`
	TotalItems  int                 `json:"total_items"`
	Progress    int                 `json:"progress"`
	Message     string              `json:"message"`
	Results     []models.ItemResult `json:"results"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
// An unknown id is a 404, never conflated with a failed job: after a server
// restart clients must resubmit, not retry.
func NewStatusHandler(store JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			return
		}

		job, err := store.Get(id)
		if err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		progress := 0
		switch job.Status {
		case models.JobStatusRunning:
			progress = jobs.EstimateProgress(job.ItemStartedAt, job.AvgItemDuration, time.Now())
		case models.JobStatusCompleted:
			progress = 100
		}

		results := job.Results
		if results == nil {
			results = []models.ItemResult{}
		}

		response.JSON(w, statusResponse{
			JobID:       job.ID.String(),
			Status:      job.Status,
			CurrentItem: job.CurrentIndex,
			TotalItems:  job.TotalItems,
			Progress:    progress,
			Message:     job.Message,
			Results:     results,
			Error:       job.ErrorMessage,
			CreatedAt:   job.CreatedAt,
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
		})
	}
}
