package domain

import "context"

// KeyPrefix namespaces every key this service writes to Redis/Valkey.
const KeyPrefix = "sparko:"

// Embedder turns a research interest into vectors. Shared contract between layers.
type Embedder interface {
	Embed(ctx context.Context, req EmbedRequest) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbedRequest is the payload sent to the embedding model.
type EmbedRequest struct {
	Term      string
	RequestID string
}

// EmbeddingResult carries the provider output through the decorator chain.
//
// Vector2D is the decoded, not yet validated, projection value: either an
// {"x":..,"y":..} object or an array. The worker coerces it into two floats.
type EmbeddingResult struct {
	Vector2D  any
	Embedding []float32
	Concepts  []string
}
