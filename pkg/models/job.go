package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// TerminalStatus reports whether a job status is final. Terminal jobs are
// frozen: the executor never touches them again and cancel becomes a no-op.
func TerminalStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job tracks one submission through the processing pipeline. The API returns a
// job_id on POST /api/v1/jobs; the client polls GET /api/v1/jobs/{job_id} until
// the status is terminal. A Job is mutated only by its own executor goroutine;
// everyone else reads copy-on-read snapshots from the jobs store.
type Job struct {
	ID              uuid.UUID    `json:"id"`
	Status          string       `json:"status"`
	Items           []ItemSpec   `json:"items"`
	Options         JobOptions   `json:"options"`
	CurrentIndex    int          `json:"current_item"`
	TotalItems      int          `json:"total_items"`
	Message         string       `json:"message"`
	Results         []ItemResult `json:"results"`
	CancelRequested bool         `json:"cancel_requested"`
	ErrorMessage    string       `json:"error,omitempty"`

	// Estimator snapshot: the smoothed per-item duration and the start time of
	// the item currently in flight (zero when no item is running). Kept on the
	// record so pollers can synthesize a progress percentage from a single
	// consistent read.
	AvgItemDuration time.Duration `json:"-"`
	ItemStartedAt   time.Time     `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Succeeded counts the items that finished successfully so far.
func (j *Job) Succeeded() int {
	n := 0
	for _, r := range j.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// ItemSpec describes one unit of work within a job: either a remote URL or a
// reference to a previously uploaded file, never both.
type ItemSpec struct {
	URL  string `json:"url,omitempty"`
	File string `json:"file,omitempty"`
}

// Source returns whichever source descriptor is set, for display.
func (s ItemSpec) Source() string {
	if s.URL != "" {
		return s.URL
	}
	return s.File
}

// JobOptions carries the per-job processing switches recognized by the
// submission API. SaveLocally defaults to true.
type JobOptions struct {
	ProduceVideo            bool `json:"produce_video"`
	SaveLocally             bool `json:"save_locally"`
	UploadToExternalService bool `json:"upload_to_external_service"`
}

// ItemResult is the outcome of one item. Success carries artifact references;
// failure carries the reason. Exactly one of the two shapes is populated.
type ItemResult struct {
	Source  string `json:"source"`
	Success bool   `json:"success"`

	Title        string `json:"title,omitempty"`
	Instrumental string `json:"instrumental,omitempty"`
	Acapella     string `json:"acapella,omitempty"`
	Video        string `json:"video,omitempty"`
	ExternalURL  string `json:"external_url,omitempty"`

	Error string `json:"error,omitempty"`
}
