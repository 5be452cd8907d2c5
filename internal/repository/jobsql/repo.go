// Package jobsql persists embedding jobs in a relational table via gorm.
//
// Transitions are conditional UPDATEs (WHERE job_id = ? AND status = ?);
// the caller wins only when exactly one row was affected.
package jobsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	domjob "github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/vector"
)

// Repo implements usecase/interest.Repository on SQL.
type Repo struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a SQL job repository.
func New(db *gorm.DB, logger *zap.Logger) *Repo {
	return &Repo{db: db, logger: logger}
}

// Migrate creates or updates the jobs table.
func (r *Repo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&jobRow{}); err != nil {
		return fmt.Errorf("migrate jobs: %w", err)
	}
	return nil
}

// Create stores a new queued job.
func (r *Repo) Create(ctx context.Context, j domjob.Job) error {
	row := rowFromNew(&j)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert job %s: %w", j.ID(), err)
	}
	return nil
}

// Find returns a job by ID.
func (r *Repo) Find(ctx context.Context, id string) (domjob.Job, error) {
	var row jobRow
	err := r.db.WithContext(ctx).Where("job_id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domjob.Job{}, domain.ErrJobNotFound
		}
		return domjob.Job{}, fmt.Errorf("select job %s: %w", id, err)
	}
	j, err := row.toDomain(r.logger)
	if err != nil {
		return domjob.Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return j, nil
}

// FindCompletedByTerm returns the most recently updated completed job whose
// term matches case-insensitively.
func (r *Repo) FindCompletedByTerm(ctx context.Context, term string) (domjob.Job, error) {
	var row jobRow
	err := r.db.WithContext(ctx).
		Where("status = ? AND LOWER(term) = ?", string(domjob.StatusCompleted), strings.ToLower(term)).
		Order("updated_at DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domjob.Job{}, domain.ErrJobNotFound
		}
		return domjob.Job{}, fmt.Errorf("select completed job: %w", err)
	}
	j, err := row.toDomain(r.logger)
	if err != nil {
		return domjob.Job{}, fmt.Errorf("decode job %s: %w", row.JobID, err)
	}
	return j, nil
}

// TryClaim moves queued -> processing in one conditional UPDATE.
func (r *Repo) TryClaim(ctx context.Context, id string, now time.Time) (bool, error) {
	n, err := r.transition(ctx, id, domjob.StatusQueued, map[string]any{
		"status":     string(domjob.StatusProcessing),
		"updated_at": now,
	})
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	return n == 1, nil
}

// Complete moves processing -> completed.
func (r *Repo) Complete(ctx context.Context, id string, res domjob.Completed, now time.Time) error {
	concepts := res.Concepts
	if concepts == nil {
		concepts = []string{}
	}
	cj, err := json.Marshal(concepts)
	if err != nil {
		return fmt.Errorf("marshal concepts: %w", err)
	}

	x, y := res.Vector2D.X, res.Vector2D.Y
	n, err := r.transition(ctx, id, domjob.StatusProcessing, map[string]any{
		"status":        string(domjob.StatusCompleted),
		"vector_x":      x,
		"vector_y":      y,
		"embedding_b64": vector.EncodeBase64(res.Embedding),
		"embedding_dim": len(res.Embedding),
		"concepts_json": string(cj),
		"updated_at":    now,
	})
	if err != nil {
		return fmt.Errorf("complete %s: %w", id, err)
	}
	if n != 1 {
		return fmt.Errorf("complete %s: %w", id, domain.ErrInvalidTransition)
	}
	return nil
}

// Fail moves processing -> failed.
func (r *Repo) Fail(ctx context.Context, id, reason string, now time.Time) error {
	n, err := r.transition(ctx, id, domjob.StatusProcessing, map[string]any{
		"status":        string(domjob.StatusFailed),
		"error_message": reason,
		"updated_at":    now,
	})
	if err != nil {
		return fmt.Errorf("fail %s: %w", id, err)
	}
	if n != 1 {
		return fmt.Errorf("fail %s: %w", id, domain.ErrInvalidTransition)
	}
	return nil
}

func (r *Repo) transition(ctx context.Context, id string, from domjob.Status, set map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&jobRow{}).
		Where("job_id = ? AND status = ?", id, string(from)).
		Updates(set)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
