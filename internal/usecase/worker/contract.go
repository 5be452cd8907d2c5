package worker

import (
	"context"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
)

// Coordinator is the slice of the job lifecycle the worker drives.
type Coordinator interface {
	TryClaim(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id string, res job.Completed) error
	MarkFailed(ctx context.Context, id, reason string) error
}
