package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vocalless/vocalless/internal/api/response"
	"github.com/vocalless/vocalless/internal/jobs"
)

// NewCancelHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/cancel.
// Cancellation is a flag flip; the executor stops at the next item boundary.
// The handler acknowledges whether or not the job was still cancellable, so
// cancelling twice is the same as cancelling once.
func NewCancelHandler(store JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			return
		}

		if err := store.RequestCancel(id); err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		response.JSON(w, map[string]string{
			"job_id":  id.String(),
			"message": "Cancellation requested",
		})
	}
}
