package interest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/interest"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/metrics"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
)

// Service coordinates the embedding job lifecycle.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// New creates the job coordinator.
func New(repo Repository, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// SubmitResult is the outcome of Submit. Cached is true when an already
// completed job for the same term was returned instead of a new one.
type SubmitResult struct {
	Job    job.Job
	Cached bool
}

// Submit validates a raw term, reuses a completed job for the same normalized
// term, or creates and publishes a new one.
//
// A publish failure returns the created job along with an error wrapping
// domain.ErrQueuePublish; the record stays queued.
func (s *Service) Submit(ctx context.Context, raw any) (SubmitResult, error) {
	term, err := interest.Validate(raw)
	if err != nil {
		return SubmitResult{}, err //nolint:wrapcheck // ValidationError carries its own reason
	}

	cached, err := s.FindCompletedByTerm(ctx, term)
	switch {
	case err == nil:
		return SubmitResult{Job: cached, Cached: true}, nil
	case !errors.Is(err, domain.ErrJobNotFound):
		return SubmitResult{}, err
	}

	j, err := s.Create(ctx, term)
	if err != nil {
		return SubmitResult{}, err
	}

	msg := queue.Message{
		Type:               queue.TypeEmbedResearchInterest,
		JobID:              j.ID(),
		Term:               j.Term(),
		ClientEnqueuedAtMs: s.now().UnixMilli(),
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("Failed to publish embedding job",
			zap.String("job_id", j.ID()), zap.Error(err))
		return SubmitResult{Job: j}, fmt.Errorf("%w: %w", domain.ErrQueuePublish, err)
	}

	return SubmitResult{Job: j}, nil
}

// Create stores a new queued job. No duplicate check.
func (s *Service) Create(ctx context.Context, term string) (job.Job, error) {
	j, err := job.New(s.newID(), term, s.now())
	if err != nil {
		return job.Job{}, fmt.Errorf("new job: %w", err)
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return job.Job{}, fmt.Errorf("create job: %w", err)
	}
	metrics.JobsCreatedTotal.Inc()
	return j, nil
}

// Find returns a job by ID or domain.ErrJobNotFound.
func (s *Service) Find(ctx context.Context, id string) (job.Job, error) {
	j, err := s.repo.Find(ctx, id)
	if err != nil {
		return job.Job{}, fmt.Errorf("find job: %w", err)
	}
	return j, nil
}

// FindCompletedByTerm looks up the most recent completed job for the
// normalized form of term.
func (s *Service) FindCompletedByTerm(ctx context.Context, term string) (job.Job, error) {
	j, err := s.repo.FindCompletedByTerm(ctx, interest.Normalize(term))
	if err != nil {
		return job.Job{}, fmt.Errorf("find completed job: %w", err)
	}
	return j, nil
}

// TryClaim reports whether the caller won queued -> processing.
func (s *Service) TryClaim(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.TryClaim(ctx, id, s.now())
	switch {
	case err != nil:
		metrics.JobsClaimTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("claim job: %w", err)
	case ok:
		metrics.JobsClaimTotal.WithLabelValues("won").Inc()
	default:
		metrics.JobsClaimTotal.WithLabelValues("lost").Inc()
	}
	return ok, nil
}

// MarkCompleted moves a processing job to completed.
// Returns domain.ErrInvalidTransition when the job is not processing.
func (s *Service) MarkCompleted(ctx context.Context, id string, res job.Completed) error {
	if res.Concepts == nil {
		res.Concepts = []string{}
	}
	if err := s.repo.Complete(ctx, id, res, s.now()); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	metrics.JobsFinishedTotal.WithLabelValues(string(job.StatusCompleted)).Inc()
	return nil
}

// MarkFailed moves a processing job to failed with reason.
func (s *Service) MarkFailed(ctx context.Context, id, reason string) error {
	if err := s.repo.Fail(ctx, id, reason, s.now()); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	metrics.JobsFinishedTotal.WithLabelValues(string(job.StatusFailed)).Inc()
	return nil
}
