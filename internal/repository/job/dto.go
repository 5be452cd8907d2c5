package job

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	domjob "github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/vector"
)

// Hash field names.
const (
	fieldJobID        = "job_id"
	fieldTerm         = "term"
	fieldStatus       = "status"
	fieldVectorX      = "vector_x"
	fieldVectorY      = "vector_y"
	fieldEmbedding    = "embedding"
	fieldEmbeddingDim = "embedding_dim"
	fieldConcepts     = "concepts_json"
	fieldError        = "error_message"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

func formatTime(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseTime(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// newJobFields maps a freshly created job to hash fields.
func newJobFields(j *domjob.Job) map[string]string {
	return map[string]string{
		fieldJobID:     j.ID(),
		fieldTerm:      j.Term(),
		fieldStatus:    string(j.Status()),
		fieldCreatedAt: formatTime(j.CreatedAt()),
		fieldUpdatedAt: formatTime(j.UpdatedAt()),
	}
}

// completedFields maps a completion payload to hash fields.
// The embedding is stored in the packed binary layout of package vector.
func completedFields(res domjob.Completed, now time.Time) (map[string]string, error) {
	concepts := res.Concepts
	if concepts == nil {
		concepts = []string{}
	}
	cj, err := json.Marshal(concepts)
	if err != nil {
		return nil, fmt.Errorf("marshal concepts: %w", err)
	}
	return map[string]string{
		fieldStatus:       string(domjob.StatusCompleted),
		fieldVectorX:      formatFloat(res.Vector2D.X),
		fieldVectorY:      formatFloat(res.Vector2D.Y),
		fieldEmbedding:    string(vector.Pack(res.Embedding)),
		fieldEmbeddingDim: strconv.Itoa(len(res.Embedding)),
		fieldConcepts:     string(cj),
		fieldUpdatedAt:    formatTime(now),
	}, nil
}

// jobFromHash rebuilds a job from its hash. Corrupt concept data degrades to
// an empty list; a corrupt embedding is dropped. Both are logged.
func jobFromHash(m map[string]string, logger *zap.Logger) (domjob.Job, error) {
	status, err := domjob.ParseStatus(m[fieldStatus])
	if err != nil {
		return domjob.Job{}, err
	}

	var state domjob.State
	switch status {
	case domjob.StatusQueued:
		state = domjob.Queued{}
	case domjob.StatusProcessing:
		state = domjob.Processing{}
	case domjob.StatusFailed:
		state = domjob.Failed{Reason: m[fieldError]}
	case domjob.StatusCompleted:
		state = completedFromHash(m, logger)
	}

	return domjob.Reconstruct(
		m[fieldJobID], m[fieldTerm], state,
		parseTime(m[fieldCreatedAt]), parseTime(m[fieldUpdatedAt]),
	), nil
}

func completedFromHash(m map[string]string, logger *zap.Logger) domjob.Completed {
	x, _ := strconv.ParseFloat(m[fieldVectorX], 64)
	y, _ := strconv.ParseFloat(m[fieldVectorY], 64)
	res := domjob.Completed{Vector2D: domjob.Vector2D{X: x, Y: y}, Concepts: []string{}}

	if raw := m[fieldEmbedding]; raw != "" {
		dim, _ := strconv.Atoi(m[fieldEmbeddingDim])
		emb, err := vector.UnpackDim([]byte(raw), dim)
		if err != nil {
			logger.Warn("Dropping corrupt job embedding",
				zap.String("job_id", m[fieldJobID]), zap.Error(err))
		} else {
			res.Embedding = emb
		}
	}

	if raw := m[fieldConcepts]; raw != "" {
		var concepts []string
		if err := json.Unmarshal([]byte(raw), &concepts); err != nil {
			logger.Warn("Failed to parse job concepts",
				zap.String("job_id", m[fieldJobID]), zap.Error(err))
		} else if concepts != nil {
			res.Concepts = concepts
		}
	}
	return res
}
