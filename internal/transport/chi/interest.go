package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain/fingerprint"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	logpkg "github.com/PoYaSharonLin/Sparko-api/internal/logger"
)

const maxTermBodyBytes = 64 << 10

type cachedInterestData struct {
	Cached    bool      `json:"cached"`
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Term      string    `json:"term"`
	Vector2D  []float64 `json:"vector_2d"`
	StatusURL string    `json:"status_url"`
}

type cachedInterestDetail struct {
	cachedInterestData
	Concepts []string `json:"concepts"`
	Percent  int      `json:"percent"`
	Message  string   `json:"message"`
}

type queuedInterestData struct {
	Message   string `json:"message"`
	Percent   int    `json:"percent"`
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

type asyncQueuedData struct {
	JobID     string `json:"job_id"`
	Term      string `json:"term"`
	StatusURL string `json:"status_url"`
}

type jobCompletedData struct {
	Status   string    `json:"status"`
	JobID    string    `json:"job_id"`
	Term     string    `json:"term"`
	Vector2D []float64 `json:"vector_2d"`
	Concepts []string  `json:"concepts"`
}

type jobFailedData struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
	Error  string `json:"error"`
}

type jobPendingData struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

// SubmitResearchInterest handles POST /api/v1/research_interest.
func (s *Server) SubmitResearchInterest(w http.ResponseWriter, r *http.Request) {
	raw, err := readTerm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.interests.Submit(r.Context(), raw)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if c, ok := res.Job.Result(); ok {
		writeEnvelope(w, http.StatusOK, "Research interest already embedded", cachedInterestDetail{
			cachedInterestData: cachedData(&res.Job, c),
			Concepts:           nonNilConcepts(c.Concepts),
			Percent:            100,
			Message:            "Cached",
		})
		return
	}

	logpkg.FromContext(r.Context()).Debug("Research interest queued",
		zap.String("job_id", res.Job.ID()), zap.String("term", res.Job.Term()))

	writeEnvelope(w, http.StatusAccepted, "Research interest processing started", queuedInterestData{
		Message:   "Queued",
		Percent:   1,
		RequestID: res.Job.ID(),
		Status:    string(res.Job.Status()),
		StatusURL: statusURL(res.Job.ID()),
	})
}

// SubmitResearchInterestAsync handles POST /api/v1/research_interest/async.
func (s *Server) SubmitResearchInterestAsync(w http.ResponseWriter, r *http.Request) {
	raw, err := readTerm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.interests.Submit(r.Context(), raw)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if c, ok := res.Job.Result(); ok {
		logpkg.FromContext(r.Context()).Info("Research interest cache hit",
			zap.String("job_id", res.Job.ID()), zap.String("term", res.Job.Term()))
		writeEnvelope(w, http.StatusOK, "Research interest already embedded", cachedData(&res.Job, c))
		return
	}

	writeEnvelope(w, http.StatusAccepted, "Job queued", asyncQueuedData{
		JobID:     res.Job.ID(),
		Term:      res.Job.Term(),
		StatusURL: statusURL(res.Job.ID()),
	})
}

// GetResearchInterest handles GET /api/v1/research_interest/{job_id}.
func (s *Server) GetResearchInterest(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "job_id")

	j, err := s.interests.Find(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	tag := fingerprint.JobTag(j)
	setCacheHeaders(w, fingerprint.Quote(tag), s.jobMaxAge)
	if fingerprint.Matches(r.Header.Get("If-None-Match"), tag) {
		writeEnvelope(w, http.StatusNotModified, "Not Modified", nil)
		return
	}

	switch st := j.State().(type) {
	case job.Completed:
		writeEnvelope(w, http.StatusOK, "Job completed", jobCompletedData{
			Status:   string(job.StatusCompleted),
			JobID:    j.ID(),
			Term:     j.Term(),
			Vector2D: st.Vector2D.Slice(),
			Concepts: nonNilConcepts(st.Concepts),
		})
	case job.Failed:
		writeEnvelope(w, http.StatusInternalServerError, "Job failed", jobFailedData{
			Status: string(job.StatusFailed),
			JobID:  j.ID(),
			Error:  st.Reason,
		})
	default:
		writeEnvelope(w, http.StatusAccepted, "Job processing", jobPendingData{
			Status: string(j.Status()),
			JobID:  j.ID(),
		})
	}
}

func cachedData(j *job.Job, c job.Completed) cachedInterestData {
	return cachedInterestData{
		Cached:    true,
		Status:    string(job.StatusCompleted),
		RequestID: j.ID(),
		Term:      j.Term(),
		Vector2D:  c.Vector2D.Slice(),
		StatusURL: statusURL(j.ID()),
	}
}

func nonNilConcepts(c []string) []string {
	if c == nil {
		return []string{}
	}
	return c
}

// readTerm extracts the raw "term" value from a JSON body or a form.
// A missing term yields nil so validation reports it as empty.
func readTerm(w http.ResponseWriter, r *http.Request) (any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTermBodyBytes)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		var body struct {
			Term any `json:"term"`
		}
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		return body.Term, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	if _, ok := r.Form["term"]; !ok {
		return nil, nil
	}
	return r.Form.Get("term"), nil
}
