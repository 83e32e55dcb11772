package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vocalless/vocalless/pkg/models"
)

// ItemRunner executes one item's ordered stage sequence. A stage failure is
// converted into a failed ItemResult, never an error; the runner must not let
// a fault escape the item boundary.
type ItemRunner interface {
	Run(ctx context.Context, item models.ItemSpec, opts models.JobOptions) models.ItemResult
}

// Scheduler drives jobs to completion. One goroutine per job, started at
// submission time; the submitter gets the job id back before meaningful work
// begins. Items within a job run strictly in submission order, which bounds
// peak resource use since a single item may hold the separation model.
type Scheduler struct {
	store  *Store
	runner ItemRunner
	seed   time.Duration
	logger *slog.Logger
}

// NewScheduler creates a scheduler over the given store and item runner.
func NewScheduler(store *Store, runner ItemRunner, seed time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if seed <= 0 {
		seed = DefaultItemDuration
	}
	return &Scheduler{store: store, runner: runner, seed: seed, logger: logger}
}

// Start dispatches the job's executor goroutine and returns immediately.
func (s *Scheduler) Start(jobID uuid.UUID) {
	go s.run(jobID)
}

// run is the per-job executor. It recovers from panics not attributable to a
// single item and always leaves the record in a terminal state.
func (s *Scheduler) run(jobID uuid.UUID) {
	logger := s.logger.With("job_id", jobID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in job executor", "error", r)
			s.finish(jobID, models.JobStatusFailed, fmt.Sprintf("internal error: %v", r))
		}
	}()

	job, err := s.store.Get(jobID)
	if err != nil {
		logger.Error("executor started for unknown job", "error", err)
		return
	}

	est := NewEstimator(s.seed)
	now := time.Now().UTC()
	if err := s.store.Update(jobID, func(j *models.Job) {
		j.Status = models.JobStatusRunning
		j.StartedAt = &now
		j.AvgItemDuration = est.Average()
	}); err != nil {
		return
	}
	logger.Info("job started", "total_items", job.TotalItems)

	calibrated := false
	for i, item := range job.Items {
		snap, err := s.store.Get(jobID)
		if err != nil {
			return
		}
		if snap.CancelRequested {
			s.finish(jobID, models.JobStatusCancelled, "Job cancelled by user")
			logger.Info("job cancelled", "items_finished", len(snap.Results))
			return
		}

		start := time.Now().UTC()
		est.OnItemStart(start)

		message := fmt.Sprintf("Processing item %d/%d", i+1, job.TotalItems)
		if !calibrated {
			// First item of a job runs on the seeded average, so the
			// percentage is a guess. Say so instead of hiding it.
			message += " (calibrating)"
		}
		if err := s.store.Update(jobID, func(j *models.Job) {
			j.CurrentIndex = i + 1
			j.Message = message
			j.ItemStartedAt = start
		}); err != nil {
			return
		}

		result := s.runner.Run(context.Background(), item, job.Options)

		done := time.Now().UTC()
		est.OnItemComplete(done)
		calibrated = true

		if err := s.store.Update(jobID, func(j *models.Job) {
			j.Results = append(j.Results, result)
			j.AvgItemDuration = est.Average()
			j.ItemStartedAt = time.Time{}
		}); err != nil {
			return
		}

		if result.Success {
			logger.Info("item completed",
				"item", i+1, "title", result.Title, "duration", done.Sub(start))
		} else {
			logger.Warn("item failed",
				"item", i+1, "source", result.Source, "error", result.Error)
		}
	}

	snap, err := s.store.Get(jobID)
	if err != nil {
		return
	}
	succeeded := snap.Succeeded()
	if succeeded > 0 {
		// A job with mixed results is still completed; callers inspect the
		// per-item results to learn which failed.
		s.finish(jobID, models.JobStatusCompleted,
			fmt.Sprintf("Completed %d/%d items", succeeded, snap.TotalItems))
	} else {
		s.finish(jobID, models.JobStatusFailed, "All items failed")
	}
	logger.Info("job finished", "succeeded", succeeded, "total_items", snap.TotalItems)
}

// finish freezes the record in a terminal state. Status transitions only move
// forward, so an already-terminal record is left alone.
func (s *Scheduler) finish(jobID uuid.UUID, status, message string) {
	now := time.Now().UTC()
	_ = s.store.Update(jobID, func(j *models.Job) {
		if models.TerminalStatus(j.Status) {
			return
		}
		j.Status = status
		j.Message = message
		if status == models.JobStatusFailed {
			j.ErrorMessage = message
		}
		j.ItemStartedAt = time.Time{}
		j.CompletedAt = &now
	})
}
