package core

// jobs.go keeps the pollable state of asynchronous imports in memory.
//
// Transitions are pending -> processing -> completed | failed. A job in a
// terminal state is frozen: later updates are dropped. ProcessedRecords never
// decreases.

import (
	"errors"
	"sync"
	"time"
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("import job not found")

// maxErrorSummary bounds the errors copied onto a job.
const maxErrorSummary = 100

// JobStore is an in-memory job registry safe for concurrent use.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*ImportJob
	now  func() time.Time
}

// NewJobStore creates an empty store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*ImportJob), now: time.Now}
}

// Create registers a pending job.
func (s *JobStore) Create(id, fileName string) ImportJob {
	now := s.now()
	job := &ImportJob{
		ID:           id,
		FileName:     fileName,
		Status:       JobPending,
		ErrorSummary: []ImportError{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()
	return *job
}

// Get returns a snapshot of the job.
func (s *JobStore) Get(id string) (ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return ImportJob{}, ErrJobNotFound
	}
	return job.snapshot(), nil
}

// Start moves a pending job to processing.
func (s *JobStore) Start(id string) bool {
	return s.update(id, func(j *ImportJob) {
		j.Status = JobProcessing
	})
}

// Advance records progress of a processing job.
func (s *JobStore) Advance(id string, p Progress) bool {
	return s.update(id, func(j *ImportJob) {
		if j.Status == JobPending {
			j.Status = JobProcessing
		}
		if p.Total > j.TotalRecords {
			j.TotalRecords = p.Total
		}
		j.ProcessedRecords = max(j.ProcessedRecords, p.Processed)
	})
}

// Complete stores the result and freezes the job. A result whose only error
// is fatal marks the job failed.
func (s *JobStore) Complete(id string, result ImportResult, fatal error) bool {
	return s.update(id, func(j *ImportJob) {
		j.Status = JobCompleted
		if fatal != nil {
			j.Status = JobFailed
		}
		j.TotalRecords = result.TotalRecords
		j.ProcessedRecords = max(j.ProcessedRecords, result.Accounted())
		j.SuccessfulImports = result.SuccessCount
		j.FailedImports = result.ErrorCount
		j.ErrorSummary = truncateErrors(result.Errors)
		r := result
		j.Result = &r
		done := s.now()
		j.CompletedAt = &done
	})
}

// Fail freezes the job as failed without a row-level result.
func (s *JobStore) Fail(id string, err error) bool {
	return s.update(id, func(j *ImportJob) {
		j.Status = JobFailed
		j.ErrorSummary = []ImportError{{Message: err.Error(), Severity: SeverityError}}
		done := s.now()
		j.CompletedAt = &done
	})
}

// Sweep removes terminal jobs completed before cutoff and returns how many
// were removed.
func (s *JobStore) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, j := range s.jobs {
		if j.Status.Terminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *JobStore) update(id string, fn func(*ImportJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return false
	}
	fn(job)
	job.UpdatedAt = s.now()
	return true
}

func (j *ImportJob) snapshot() ImportJob {
	c := *j
	c.ErrorSummary = make([]ImportError, len(j.ErrorSummary))
	copy(c.ErrorSummary, j.ErrorSummary)
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

func truncateErrors(errs []ImportError) []ImportError {
	n := min(len(errs), maxErrorSummary)
	out := make([]ImportError, n)
	copy(out, errs[:n])
	return out
}
