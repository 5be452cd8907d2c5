package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrJobNotFound signals a missing embedding job.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidTransition signals a job status change that the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid job transition")
	// ErrJobNotCompleted signals that a job has no embedding yet.
	ErrJobNotCompleted = errors.New("job not completed")

	// ErrInvalidRequest signals malformed client input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingRequired signals top_n without a resolvable embedding.
	ErrEmbeddingRequired = errors.New("top_n requires an embedded research interest (request_id)")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidVector2D signals a provider response whose 2D projection is not two numbers.
	ErrInvalidVector2D = errors.New("invalid vector_2d")
	// ErrQueuePublish signals that a job message could not be enqueued.
	ErrQueuePublish = errors.New("failed to queue embedding job")
)
