package jobsql

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	domjob "github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/vector"
)

// jobRow is the research_interest_jobs table.
type jobRow struct {
	JobID        string   `gorm:"column:job_id;primaryKey;size:64"`
	Term         string   `gorm:"column:term;not null;index"`
	Status       string   `gorm:"column:status;size:16;not null;index"`
	VectorX      *float64 `gorm:"column:vector_x"`
	VectorY      *float64 `gorm:"column:vector_y"`
	EmbeddingB64 string   `gorm:"column:embedding_b64;type:text"`
	EmbeddingDim int      `gorm:"column:embedding_dim"`
	ConceptsJSON string   `gorm:"column:concepts_json;type:text"`
	ErrorMessage string   `gorm:"column:error_message;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time `gorm:"index"`
}

func (jobRow) TableName() string { return "research_interest_jobs" }

func rowFromNew(j *domjob.Job) jobRow {
	return jobRow{
		JobID:     j.ID(),
		Term:      j.Term(),
		Status:    string(j.Status()),
		CreatedAt: j.CreatedAt(),
		UpdatedAt: j.UpdatedAt(),
	}
}

func (r *jobRow) toDomain(logger *zap.Logger) (domjob.Job, error) {
	status, err := domjob.ParseStatus(r.Status)
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
		state = domjob.Failed{Reason: r.ErrorMessage}
	case domjob.StatusCompleted:
		state = r.completed(logger)
	}
	return domjob.Reconstruct(r.JobID, r.Term, state, r.CreatedAt.UTC(), r.UpdatedAt.UTC()), nil
}

func (r *jobRow) completed(logger *zap.Logger) domjob.Completed {
	res := domjob.Completed{Concepts: []string{}}
	if r.VectorX != nil {
		res.Vector2D.X = *r.VectorX
	}
	if r.VectorY != nil {
		res.Vector2D.Y = *r.VectorY
	}

	if r.EmbeddingB64 != "" {
		emb, err := vector.DecodeBase64(r.EmbeddingB64)
		switch {
		case err != nil:
			logger.Warn("Dropping corrupt job embedding", zap.String("job_id", r.JobID), zap.Error(err))
		case len(emb) != r.EmbeddingDim:
			logger.Warn("Dropping job embedding with wrong dimension",
				zap.String("job_id", r.JobID), zap.Int("dim", r.EmbeddingDim), zap.Int("len", len(emb)))
		default:
			res.Embedding = emb
		}
	}

	if r.ConceptsJSON != "" {
		var concepts []string
		if err := json.Unmarshal([]byte(r.ConceptsJSON), &concepts); err != nil {
			logger.Warn("Failed to parse job concepts", zap.String("job_id", r.JobID), zap.Error(err))
		} else if concepts != nil {
			res.Concepts = concepts
		}
	}
	return res
}
