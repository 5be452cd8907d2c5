// Package openai adapts OpenAI-compatible embedding APIs to domain.Embedder.
//
// Those APIs return only the high-dimensional vector, so the research-interest
// 2D point is read from two configured components of it.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	"github.com/PoYaSharonLin/Sparko-api/internal/metrics"
)

// Embedder is an embedding provider using an OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	axes       [2]int
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	// ProjectionAxes are the embedding components used as x and y.
	// Zero value means components 0 and 1.
	ProjectionAxes [2]int
	Logger         *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	axes := cfg.ProjectionAxes
	if axes == [2]int{} {
		axes = [2]int{0, 1}
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		axes:       axes,
		logger:     cfg.Logger,
	}
}

// Embed requests one embedding for the term and projects it onto the
// configured axes. Concepts are always empty: the API has no such output.
func (e *Embedder) Embed(ctx context.Context, in domain.EmbedRequest) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{in.Term},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		e.record(start, "api_error")
		return domain.EmbeddingResult{}, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		e.record(start, "empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	vec := resp.Data[0].Embedding
	if need := max(e.axes[0], e.axes[1]) + 1; len(vec) < need {
		e.record(start, "short_vector")
		return domain.EmbeddingResult{}, fmt.Errorf("embedding has %d components, projection needs %d: %w",
			len(vec), need, domain.ErrEmbeddingProviderError)
	}
	e.record(start, "")

	return domain.EmbeddingResult{
		Vector2D:  []float64{float64(vec[e.axes[0]]), float64(vec[e.axes[1]])},
		Embedding: vec,
		Concepts:  []string{},
	}, nil
}

// record updates provider metrics; an empty errKind means success.
func (e *Embedder) record(start time.Time, errKind string) {
	model := string(e.model)
	if errKind != "" {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, errKind).Inc()
		return
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(time.Since(start).Seconds())
}

// HealthCheck retrieves the configured model, so a wrong model name or key
// fails the probe without spending tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.GetModel(ctx, string(e.model)); err != nil {
		return fmt.Errorf("get model %s: %w", e.model, err)
	}
	return nil
}

// parseAPIError turns a client error into a readable one wrapping
// domain.ErrEmbeddingProviderError; HTTP 429 also wraps domain.ErrRateLimited.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProviderError

	status, msg := 0, ""
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &reqErr):
		status, msg = reqErr.HTTPStatusCode, extractDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
	case errors.As(err, &apiErr):
		status, msg = apiErr.HTTPStatusCode, apiErr.Message
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("embedding request: %w: %w", err, wrap)
	default:
		return fmt.Errorf("embedding request failed: %w", wrap)
	}

	if status == http.StatusTooManyRequests {
		return fmt.Errorf("embedding API error %d: %s: %w: %w", status, msg, domain.ErrRateLimited, wrap)
	}
	return fmt.Errorf("embedding API error %d: %s: %w", status, msg, wrap)
}

// extractDetail reads the "detail" field some compatible servers return.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}
