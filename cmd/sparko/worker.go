package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/usecase/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume embedding jobs from the queue",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, "worker")
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.Queue.Driver == "memory" {
			a.logger.Warn("Memory queue in a standalone worker receives nothing; use `sparko all`")
		}
		return a.runWorker(ctx)
	},
}

// runWorker consumes until ctx is done.
func (a *app) runWorker(ctx context.Context) error {
	processor := worker.NewProcessor(
		a.interests,
		a.embedder,
		time.Duration(a.cfg.Worker.EmbedTimeoutSec)*time.Second,
		a.logger,
	)
	runner := worker.NewRunner(a.queue, processor.Handle, a.cfg.Worker.Concurrency, a.logger)

	a.logger.Info("Starting embedding worker",
		zap.Int("concurrency", a.cfg.Worker.Concurrency),
		zap.String("queue_driver", a.cfg.Queue.Driver),
	)
	return runner.Run(ctx)
}
