package health

import "context"

// StorePinger is satisfied by every backing store (key-value and SQL).
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker probes the embedding provider.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
