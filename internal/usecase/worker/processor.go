// Package worker consumes embedding job messages, claims each job, calls the
// embedding provider and records the outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	logpkg "github.com/PoYaSharonLin/Sparko-api/internal/logger"
	"github.com/PoYaSharonLin/Sparko-api/internal/metrics"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
)

// DefaultEmbedTimeout bounds one embedding call.
const DefaultEmbedTimeout = 30 * time.Second

// finalizeTimeout bounds the status write after the embedding call.
const finalizeTimeout = 10 * time.Second

// Processor handles one message at a time; it is safe for concurrent use.
type Processor struct {
	jobs     Coordinator
	embedder domain.Embedder
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewProcessor creates a message processor. timeout <= 0 uses DefaultEmbedTimeout.
func NewProcessor(jobs Coordinator, embedder domain.Embedder, timeout time.Duration, logger *zap.Logger) *Processor {
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}
	return &Processor{
		jobs:     jobs,
		embedder: embedder,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle implements queue.Handler. Every failure after a successful claim is
// persisted on the job; nothing is retried.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) {
	if msg.Type != queue.TypeEmbedResearchInterest {
		p.logger.Debug("Ignoring message", zap.String("type", msg.Type))
		return
	}
	if msg.JobID == "" {
		p.logger.Warn("Message without job_id", zap.String("term", msg.Term))
		return
	}

	ctx, log := logpkg.With(ctx, p.logger, zap.String("job_id", msg.JobID))
	start := p.now()

	if msg.ClientEnqueuedAtMs > 0 {
		latency := start.Sub(time.UnixMilli(msg.ClientEnqueuedAtMs))
		metrics.QueueLatency.Observe(latency.Seconds())
		log.Debug("Message received", zap.Duration("queue_latency", latency))
	}

	claimed, err := p.jobs.TryClaim(ctx, msg.JobID)
	if err != nil {
		log.Error("Failed to claim job", zap.Error(err))
		return
	}
	if !claimed {
		log.Info("Job already claimed or finished, skipping")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Worker panic", zap.Any("panic", r), zap.Stack("stack"))
			p.fail(ctx, log, msg.JobID, fmt.Sprintf("worker panic: %v", r))
		}
	}()

	res, reason := p.embed(ctx, msg)
	if reason != "" {
		p.fail(ctx, log, msg.JobID, reason)
		return
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := p.jobs.MarkCompleted(fctx, msg.JobID, res); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Warn("Job left processing before completion", zap.Error(err))
			return
		}
		log.Error("Failed to mark job completed", zap.Error(err))
		return
	}

	log.Info("Job completed",
		zap.Duration("duration", p.now().Sub(start)),
		zap.Int("embedding_dim", len(res.Embedding)),
		zap.Int("concepts", len(res.Concepts)),
	)
}

// embed returns the completed payload, or a non-empty failure reason.
func (p *Processor) embed(ctx context.Context, msg queue.Message) (job.Completed, string) {
	ectx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.embedder.Embed(ectx, domain.EmbedRequest{Term: msg.Term, RequestID: msg.JobID})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return job.Completed{}, fmt.Sprintf("embedding timed out after %s", p.timeout)
		}
		return job.Completed{}, err.Error()
	}

	v, err := job.CoerceVector2D(out.Vector2D)
	if err != nil {
		logpkg.FromContextOr(ctx, p.logger).Warn("Invalid vector_2d from embedding provider",
			zap.Any("vector_2d", out.Vector2D))
		return job.Completed{}, "Invalid vector_2d"
	}

	return job.Completed{Vector2D: v, Embedding: out.Embedding, Concepts: out.Concepts}, ""
}

func (p *Processor) fail(ctx context.Context, log *zap.Logger, id, reason string) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := p.jobs.MarkFailed(fctx, id, reason); err != nil {
		log.Error("Failed to mark job failed", zap.String("reason", reason), zap.Error(err))
		return
	}
	log.Warn("Job failed", zap.String("reason", reason))
}
