package papers

import (
	"context"
	"time"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/paper"
)

// Repository reads candidate papers.
type Repository interface {
	FindByCategories(ctx context.Context, journals []string, minDate, maxDate *time.Time) ([]paper.Paper, error)
}

// JobFinder resolves the research interest job referenced by a listing.
type JobFinder interface {
	Find(ctx context.Context, id string) (job.Job, error)
}
