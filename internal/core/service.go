package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultImportTimeout bounds a single background import.
const DefaultImportTimeout = 10 * time.Minute

// ServiceConfig tunes job execution.
type ServiceConfig struct {
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
}

// Service runs imports synchronously or as tracked background jobs.
type Service struct {
	pipeline *Pipeline
	jobs     *JobStore
	limiter  *ImportLimiter
	timeout  time.Duration
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewService creates a Service around a configured pipeline.
func NewService(p *Pipeline, cfg ServiceConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	return &Service{
		pipeline: p,
		jobs:     NewJobStore(),
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		timeout:  timeout,
		logger:   p.logger(),
	}
}

// Jobs exposes the job registry.
func (s *Service) Jobs() *JobStore { return s.jobs }

// Limiter exposes the concurrency limiter.
func (s *Service) Limiter() *ImportLimiter { return s.limiter }

// Process runs an import on the caller's goroutine. Once a slot is acquired
// the run ignores cancellation of ctx and is bounded only by the import
// timeout, so a started batch always commits.
func (s *Service) Process(ctx context.Context, file FileInput, opts ImportOptions) (ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	return s.pipeline.Run(runCtx, file, opts, nil)
}

// Submit registers a job and processes the file in the background. It returns
// as soon as the job is registered; poll Status for progress.
//
// Returns ErrTooManyImports if no slot frees up within the configured wait.
func (s *Service) Submit(ctx context.Context, file FileInput, opts ImportOptions) (string, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	jobID := uuid.New().String()
	s.jobs.Create(jobID, file.Name)
	s.pipeline.recorder().JobStarted()

	logger := s.logger.With("job_id", jobID, "file", file.Name)
	if ip := IPAddressFromContext(ctx); ip != "" {
		logger = logger.With("remote_ip", ip)
	}
	if ua := UserAgentFromContext(ctx); ua != "" {
		logger = logger.With("user_agent", ua)
	}
	logger.Info("import job submitted", "bytes", len(file.Data), "validate_only", opts.ValidateOnly)

	// The job outlives the request that submitted it.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.limiter.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in import job", "panic", r)
				s.jobs.Fail(jobID, fmt.Errorf("internal error: %v", r))
				s.pipeline.recorder().JobFinished(JobFailed)
			}
		}()
		s.runJob(jobCtx, jobID, file, opts, logger)
	}()

	return jobID, nil
}

func (s *Service) runJob(ctx context.Context, jobID string, file FileInput, opts ImportOptions, logger *slog.Logger) {
	s.jobs.Start(jobID)

	result, err := s.pipeline.Run(ctx, file, opts, func(p Progress) {
		s.jobs.Advance(jobID, p)
		logger.Debug("import progress", "percent", p.Percent, "phase", p.Phase)
	})

	s.jobs.Complete(jobID, result, err)
	status := JobCompleted
	if err != nil {
		status = JobFailed
		logger.Warn("import job failed", "error", err)
	}
	s.pipeline.recorder().JobFinished(status)
}

// Status returns a snapshot of a job.
func (s *Service) Status(jobID string) (ImportJob, error) {
	return s.jobs.Get(jobID)
}

// Wait blocks until all background jobs have finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
