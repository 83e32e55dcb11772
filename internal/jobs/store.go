package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vocalless/vocalless/pkg/models"
)

// ErrNotFound is returned for unknown job ids. Jobs live for the process
// lifetime, so an unknown id means the server lost its state (restart), not
// that the job failed; handlers surface it distinctly from failure.
var ErrNotFound = errors.New("job not found")

// Store is the process-wide registry of jobs. One writer per record (the
// job's own executor, via Update), many concurrent readers; readers always get
// deep-copied snapshots, never a partially written record.
type Store struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.Job
}

// NewStore returns an empty in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[uuid.UUID]*models.Job)}
}

// Create allocates a job id, inserts a queued record, and returns its
// snapshot. It does no processing.
func (s *Store) Create(items []models.ItemSpec, opts models.JobOptions) models.Job {
	job := &models.Job{
		ID:              uuid.New(),
		Status:          models.JobStatusQueued,
		Items:           append([]models.ItemSpec(nil), items...),
		Options:         opts,
		TotalItems:      len(items),
		Message:         "Queued",
		AvgItemDuration: DefaultItemDuration,
		CreatedAt:       time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return snapshot(job)
}

// Get returns a consistent snapshot of the job, or ErrNotFound.
func (s *Store) Get(id uuid.UUID) (models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return snapshot(job), nil
}

// List returns snapshots of every job, newest first.
func (s *Store) List() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, snapshot(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Update applies one mutation to the record under the write lock. Mutations on
// the same record never interleave; all of them originate from the job's own
// executor goroutine.
func (s *Store) Update(id uuid.UUID, mutate func(*models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	mutate(job)
	return nil
}

// RequestCancel flips the cancel flag. Idempotent; a no-op (not an error) when
// the job is already terminal. Stopping happens at the executor's next item
// boundary.
func (s *Store) RequestCancel(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if models.TerminalStatus(job.Status) {
		return nil
	}
	job.CancelRequested = true
	return nil
}

// snapshot deep-copies the slices so a reader can never observe the executor
// appending to them.
func snapshot(job *models.Job) models.Job {
	out := *job
	out.Items = append([]models.ItemSpec(nil), job.Items...)
	out.Results = append([]models.ItemResult(nil), job.Results...)
	if job.StartedAt != nil {
		t := *job.StartedAt
		out.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
