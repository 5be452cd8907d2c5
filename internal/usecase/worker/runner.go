package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
)

// Runner runs a fixed pool of consumers that share one handler.
type Runner struct {
	consumer    queue.Consumer
	handler     queue.Handler
	concurrency int
	logger      *zap.Logger
}

// NewRunner creates a consumer pool. concurrency < 1 runs one consumer.
func NewRunner(consumer queue.Consumer, handler queue.Handler, concurrency int, logger *zap.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{consumer: consumer, handler: handler, concurrency: concurrency, logger: logger}
}

// Run blocks until ctx is canceled or a consumer fails.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Worker pool starting", zap.Int("concurrency", r.concurrency))

	g, gctx := errgroup.WithContext(ctx)
	for i := range r.concurrency {
		g.Go(func() error {
			if err := r.consumer.Consume(gctx, r.handler); err != nil {
				return fmt.Errorf("consumer %d: %w", i, err)
			}
			return nil
		})
	}

	err := g.Wait()
	r.logger.Info("Worker pool stopped")
	return err //nolint:wrapcheck // already wrapped per consumer
}
