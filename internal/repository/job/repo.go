// Package job persists embedding jobs as Redis/Valkey hashes.
//
// One hash per job at sparko:job:<id>. The claim and both terminal
// transitions are server-side compare-and-set operations on the status field.
// Completion also updates the hash sparko:job_term:<term> {value: <id>,
// order: <updated_at>} in the same script; a completion with an older
// updated_at never displaces a newer one.
package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/db"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	domjob "github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
)

var (
	jobKeyPrefix  = domain.KeyPrefix + "job:"
	termKeyPrefix = domain.KeyPrefix + "job_term:"
)

const indexValue = "value"

// store is the consumer interface for jobs (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HCompareAndSet(ctx context.Context, key, field, expected string, fields map[string]string) (bool, error)
	HCompareAndSetIndexed(
		ctx context.Context, key, field, expected string, fields map[string]string, idx db.IndexEntry,
	) (bool, error)
}

// Repo implements usecase/interest.Repository.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates a job repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// Create stores a new queued job.
func (r *Repo) Create(ctx context.Context, j domjob.Job) error {
	if err := r.store.HSet(ctx, jobKey(j.ID()), newJobFields(&j)); err != nil {
		return fmt.Errorf("hset %s: %w", j.ID(), err)
	}
	return nil
}

// Find returns a job by ID.
func (r *Repo) Find(ctx context.Context, id string) (domjob.Job, error) {
	m, err := r.store.HGetAll(ctx, jobKey(id))
	if err != nil {
		return domjob.Job{}, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(m) == 0 {
		return domjob.Job{}, domain.ErrJobNotFound
	}
	j, err := jobFromHash(m, r.logger)
	if err != nil {
		return domjob.Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return j, nil
}

// FindCompletedByTerm returns the most recently completed job for a normalized term.
func (r *Repo) FindCompletedByTerm(ctx context.Context, term string) (domjob.Job, error) {
	idx, err := r.store.HGetAll(ctx, termKey(term))
	if err != nil {
		return domjob.Job{}, fmt.Errorf("get term index: %w", err)
	}
	id := idx[indexValue]
	if id == "" {
		return domjob.Job{}, domain.ErrJobNotFound
	}

	j, err := r.Find(ctx, id)
	if err != nil {
		return domjob.Job{}, err
	}
	if j.Status() != domjob.StatusCompleted {
		return domjob.Job{}, domain.ErrJobNotFound
	}
	return j, nil
}

// TryClaim moves queued -> processing. False means another caller owns the job
// or the job does not exist.
func (r *Repo) TryClaim(ctx context.Context, id string, now time.Time) (bool, error) {
	ok, err := r.store.HCompareAndSet(ctx, jobKey(id), fieldStatus, string(domjob.StatusQueued),
		map[string]string{
			fieldStatus:    string(domjob.StatusProcessing),
			fieldUpdatedAt: formatTime(now),
		})
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	return ok, nil
}

// Complete moves processing -> completed and indexes the term atomically.
func (r *Repo) Complete(ctx context.Context, id string, res domjob.Completed, now time.Time) error {
	fields, err := completedFields(res, now)
	if err != nil {
		return err
	}

	// The term is immutable, so reading it ahead of the swap is safe.
	j, err := r.Find(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return fmt.Errorf("complete %s: %w", id, domain.ErrInvalidTransition)
		}
		return fmt.Errorf("complete %s: %w", id, err)
	}

	ok, err := r.store.HCompareAndSetIndexed(ctx, jobKey(id), fieldStatus, string(domjob.StatusProcessing),
		fields, db.IndexEntry{Key: termKey(j.Term()), Value: id, Order: formatTime(now)})
	if err != nil {
		return fmt.Errorf("complete %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("complete %s: %w", id, domain.ErrInvalidTransition)
	}
	return nil
}

// Fail moves processing -> failed.
func (r *Repo) Fail(ctx context.Context, id, reason string, now time.Time) error {
	ok, err := r.store.HCompareAndSet(ctx, jobKey(id), fieldStatus, string(domjob.StatusProcessing),
		map[string]string{
			fieldStatus:    string(domjob.StatusFailed),
			fieldError:     reason,
			fieldUpdatedAt: formatTime(now),
		})
	if err != nil {
		return fmt.Errorf("fail %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("fail %s: %w", id, domain.ErrInvalidTransition)
	}
	return nil
}

func jobKey(id string) string { return jobKeyPrefix + id }

func termKey(term string) string { return termKeyPrefix + strings.ToLower(term) }
