package interest

import (
	"context"
	"time"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
)

// Repository persists embedding jobs. TryClaim, Complete and Fail must be
// atomic compare-and-set operations on the job status.
type Repository interface {
	Create(ctx context.Context, j job.Job) error
	Find(ctx context.Context, id string) (job.Job, error)
	FindCompletedByTerm(ctx context.Context, term string) (job.Job, error)
	TryClaim(ctx context.Context, id string, now time.Time) (bool, error)
	Complete(ctx context.Context, id string, res job.Completed, now time.Time) error
	Fail(ctx context.Context, id, reason string, now time.Time) error
}

// Publisher sends job messages to the worker queue.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}
