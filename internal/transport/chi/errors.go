package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/interest"
	papersuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/papers"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		pendingHandler,
		sentinelHandler(domain.ErrEmbeddingRequired, http.StatusBadRequest),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests),
		sentinelHandler(domain.ErrQueuePublish, http.StatusInternalServerError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway),
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrQueuePublish):
		return "Failed to queue embedding job"
	case errors.Is(err, domain.ErrJobNotFound):
		return "Job not found"
	}
	sentinels := []error{
		domain.ErrEmbeddingRequired,
		domain.ErrInvalidRequest,
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

// validationHandler reports the rejected-term reason as error_code.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	var ve *interest.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeEnvelope(w, http.StatusBadRequest, ve.Error(), map[string]string{
		"error_code": string(ve.Reason),
		"error":      ve.Error(),
	})
	return true
}

// pendingHandler answers a listing that references an unfinished job.
func pendingHandler(w http.ResponseWriter, err error, _ string) bool {
	var pe *papersuc.PendingError
	if !errors.As(err, &pe) {
		return false
	}
	writeEnvelope(w, http.StatusAccepted, "Research interest still processing", map[string]string{
		"status":     string(pe.Status),
		"request_id": pe.RequestID,
		"status_url": statusURL(pe.RequestID),
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.respondError(w, err, "internal error")
}

// respondError maps err through the handler chain; unmapped errors become a
// 500 with internalMsg.
func (s *Server) respondError(w http.ResponseWriter, err error, internalMsg string) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, internalMsg)
}
