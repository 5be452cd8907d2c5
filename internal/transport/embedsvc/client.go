// Package embedsvc is the HTTP client for the research-interest embedding
// service: POST {term, request_id} to <base>/embed.
package embedsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	"github.com/PoYaSharonLin/Sparko-api/internal/metrics"
)

const (
	// DefaultURL is used when no endpoint is configured.
	DefaultURL = "http://localhost:8001/embed"

	// DefaultTimeout is the HTTP client timeout.
	DefaultTimeout = 60 * time.Second

	providerName = "service"
	maxErrorBody = 1024
)

// NormalizeURL appends /embed to a base URL unless it is already there.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultURL
	}
	if strings.HasSuffix(raw, "/embed") {
		return raw
	}
	return strings.TrimSuffix(raw, "/") + "/embed"
}

// Client is a rate-limited embedding service client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoint   string
	model      string
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithModel sets the model label used in metrics.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a client for the given endpoint (normalized with NormalizeURL).
func New(endpoint string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		endpoint:   NormalizeURL(endpoint),
		model:      "default",
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the resolved /embed URL.
func (c *Client) Endpoint() string { return c.endpoint }

type embedRequest struct {
	Term      string `json:"term"`
	RequestID string `json:"request_id,omitempty"`
}

type embedResponse struct {
	Vector2D  any       `json:"vector_2d"`
	Embedding []float32 `json:"embedding"`
	Concepts  []string  `json:"concepts"`
}

// Embed implements domain.Embedder.
func (c *Client) Embed(ctx context.Context, in domain.EmbedRequest) (domain.EmbeddingResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
	}

	body, err := json.Marshal(embedRequest{Term: in.Term, RequestID: in.RequestID})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.countError("transport")
		return domain.EmbeddingResult{}, fmt.Errorf("embedding service request: %w: %w", err, domain.ErrEmbeddingProviderError)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.countError("http_status")
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.EmbeddingResult{}, fmt.Errorf("embedding service returned %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(msg)), domain.ErrEmbeddingProviderError)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.countError("decode")
		return domain.EmbeddingResult{}, fmt.Errorf("decode embedding response: %w: %w", err, domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, c.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, c.model).Observe(duration.Seconds())

	return domain.EmbeddingResult{
		Vector2D:  out.Vector2D,
		Embedding: out.Embedding,
		Concepts:  out.Concepts,
	}, nil
}

func (c *Client) countError(kind string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, c.model, kind).Inc()
}

// HealthCheck issues GET <base>/health; any status below 500 counts as up.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := strings.TrimSuffix(c.endpoint, "/embed") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("embedding service health: status %d", resp.StatusCode)
	}
	return nil
}
