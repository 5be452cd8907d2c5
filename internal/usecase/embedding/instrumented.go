// Package embedding holds decorators shared by every embedding provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	logpkg "github.com/PoYaSharonLin/Sparko-api/internal/logger"
)

// InstrumentedEmbedder logs every embedding call with its duration and result
// shape. Provider metrics are recorded by the transports themselves.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	fields []zap.Field
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. logger is used only when the call
// context carries no logger of its own.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		fields: []zap.Field{zap.String("provider", provider), zap.String("model", model)},
		logger: logger,
	}
}

// Embed delegates to the inner embedder.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, req domain.EmbedRequest,
) (domain.EmbeddingResult, error) {
	log := logpkg.FromContextOr(ctx, p.logger).With(p.fields...)
	start := time.Now()

	result, err := p.inner.Embed(ctx, req)
	elapsed := zap.Duration("duration", time.Since(start))

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Warn("Embedding request abandoned", elapsed, zap.Error(err))
		} else {
			log.Error("Embedding request failed", elapsed, zap.Int("term_len", len(req.Term)), zap.Error(err))
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	log.Debug("Embedding request completed",
		elapsed,
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("concepts", len(result.Concepts)),
	)
	return result, nil
}
