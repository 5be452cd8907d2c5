package papers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/ranking"
	"github.com/PoYaSharonLin/Sparko-api/internal/metrics"
)

// ListRequest is a validated paper listing query.
type ListRequest struct {
	Journals  []string
	Page      int
	RequestID string
	TopN      string
	MinDate   *time.Time
	MaxDate   *time.Time
}

// ListResult carries the ranked page and, when a request_id was given, the
// completed job that supplied the query embedding.
type ListResult struct {
	Job    *job.Job
	Ranked ranking.Result
}

// PendingError is returned when the referenced job is missing or not yet
// completed. Status is "queued" for a missing job.
type PendingError struct {
	RequestID string
	Status    job.Status
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("research interest %s is %s", e.RequestID, e.Status)
}

func (e *PendingError) Unwrap() error { return domain.ErrJobNotCompleted }

// Service lists papers ranked against a research interest.
type Service struct {
	papers Repository
	jobs   JobFinder
	logger *zap.Logger
}

// New creates the listing service.
func New(papers Repository, jobs JobFinder, logger *zap.Logger) *Service {
	return &Service{papers: papers, jobs: jobs, logger: logger}
}

// Query is a listing whose research interest has been resolved and whose
// top_n has been checked against the available embedding.
type Query struct {
	req       ListRequest
	job       *job.Job
	embedding []float32
}

// List resolves the query embedding, loads candidates and ranks them.
func (s *Service) List(ctx context.Context, req ListRequest) (ListResult, error) {
	q, err := s.Resolve(ctx, req)
	if err != nil {
		return ListResult{}, err
	}
	return s.Rank(ctx, q)
}

// Resolve looks up the referenced job without touching the paper catalog.
// It returns *PendingError for a missing or unfinished job and
// domain.ErrEmbeddingRequired for top_n without a query embedding.
func (s *Service) Resolve(ctx context.Context, req ListRequest) (Query, error) {
	q := Query{req: req}

	if req.RequestID != "" {
		j, err := s.resolveJob(ctx, req.RequestID)
		if err != nil {
			return Query{}, err
		}
		q.job = &j
		if res, ok := j.Result(); ok {
			q.embedding = res.Embedding
		}
	}

	if strings.TrimSpace(req.TopN) != "" && len(q.embedding) == 0 {
		return Query{}, domain.ErrEmbeddingRequired
	}
	return q, nil
}

// Rank loads the candidates for a resolved query and ranks them.
func (s *Service) Rank(ctx context.Context, q Query) (ListResult, error) {
	req := q.req
	candidates, err := s.papers.FindByCategories(ctx, req.Journals, req.MinDate, req.MaxDate)
	if err != nil {
		return ListResult{}, fmt.Errorf("find papers: %w", err)
	}

	out := ListResult{Job: q.job}
	start := time.Now()
	out.Ranked = ranking.Rank(candidates, ranking.Query{
		Embedding: q.embedding,
		TopN:      req.TopN,
		Page:      req.Page,
	})
	metrics.RankingDuration.WithLabelValues(string(out.Ranked.Pagination.Mode)).
		Observe(time.Since(start).Seconds())

	s.logger.Debug("Papers ranked",
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(out.Ranked.Items)),
		zap.String("mode", string(out.Ranked.Pagination.Mode)),
		zap.String("request_id", req.RequestID),
	)
	return out, nil
}

func (s *Service) resolveJob(ctx context.Context, id string) (job.Job, error) {
	j, err := s.jobs.Find(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return job.Job{}, &PendingError{RequestID: id, Status: job.StatusQueued}
		}
		return job.Job{}, fmt.Errorf("find job: %w", err)
	}
	if j.Status() != job.StatusCompleted {
		return job.Job{}, &PendingError{RequestID: id, Status: j.Status()}
	}
	return j, nil
}
