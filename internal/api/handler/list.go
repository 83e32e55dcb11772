package handler

import (
	"net/http"
	"time"

	"github.com/vocalless/vocalless/internal/api/response"
)

type jobSummary struct {
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	CurrentItem int       `json:"current_item"`
	TotalItems  int       `json:"total_items"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs,
// newest first.
func NewListJobsHandler(store JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := store.List()

		summaries := make([]jobSummary, 0, len(all))
		for _, job := range all {
			summaries = append(summaries, jobSummary{
				JobID:       job.ID.String(),
				Status:      job.Status,
				CurrentItem: job.CurrentIndex,
				TotalItems:  job.TotalItems,
				Message:     job.Message,
				CreatedAt:   job.CreatedAt,
			})
		}

		response.JSON(w, map[string]any{
			"jobs":  summaries,
			"count": len(summaries),
		})
	}
}
