// Package chi serves the HTTP API on a go-chi router.
package chi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/taxonomy"
	healthuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/health"
	interestuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/interest"
	papersuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/papers"
)

// Default Cache-Control max-age values for polled resources.
const (
	DefaultJobMaxAge    = 10 * time.Second
	DefaultPapersMaxAge = 300 * time.Second
)

// Server holds the HTTP handlers.
type Server struct {
	interests     *interestuc.Service
	papers        *papersuc.Service
	health        *healthuc.Service
	journals      taxonomy.Tree
	logger        *zap.Logger
	validate      *validator.Validate
	errorHandlers []errorHandler

	env          string
	jobMaxAge    time.Duration
	papersMaxAge time.Duration
}

// NewServer creates an HTTP API server.
func NewServer(
	interests *interestuc.Service,
	papers *papersuc.Service,
	health *healthuc.Service,
	journals taxonomy.Tree,
	logger *zap.Logger,
) *Server {
	return &Server{
		interests:     interests,
		papers:        papers,
		health:        health,
		journals:      journals,
		logger:        logger,
		validate:      newQueryValidator(),
		errorHandlers: defaultErrorHandlers(),
		env:           "local",
		jobMaxAge:     DefaultJobMaxAge,
		papersMaxAge:  DefaultPapersMaxAge,
	}
}

// WithCacheMaxAge overrides the Cache-Control max-age of job and paper responses.
// Zero keeps the default.
func (s *Server) WithCacheMaxAge(job, papers time.Duration) *Server {
	if job > 0 {
		s.jobMaxAge = job
	}
	if papers > 0 {
		s.papersMaxAge = papers
	}
	return s
}

// WithEnvironment sets the environment name shown by the root endpoint.
func (s *Server) WithEnvironment(env string) *Server {
	if env != "" {
		s.env = env
	}
	return s
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeEnvelope(w, http.StatusOK, fmt.Sprintf("Sparko API v1 at /api/v1/ in %s mode", s.env), nil)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	if report.Status != healthuc.Healthy {
		writeEnvelope(w, http.StatusServiceUnavailable, "Service degraded", report)
		return
	}
	writeEnvelope(w, http.StatusOK, "Service healthy", report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ListJournals handles GET /api/v1/journals.
func (s *Server) ListJournals(w http.ResponseWriter, _ *http.Request) {
	writeEnvelope(w, http.StatusOK, "Journals retrieved successfully", s.journals)
}

// setCacheHeaders marks a per-client cacheable response with its ETag.
func setCacheHeaders(w http.ResponseWriter, etag string, maxAge time.Duration) {
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(maxAge.Seconds())))
	w.Header().Set("Vary", "Cookie")
	w.Header().Set("ETag", etag)
}

func statusURL(jobID string) string {
	return "/api/v1/research_interest/" + jobID
}
