// Package job models the research-interest embedding job and its lifecycle.
package job

import (
	"fmt"
	"time"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
)

// Status is the persisted lifecycle label.
type Status string

// Lifecycle: queued -> processing -> completed | failed.
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus validates a stored status label.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown job status %q", s)
	}
}

// State is the closed set of job states. Only this package implements it.
type State interface {
	Status() Status
	isState()
}

// Queued is the initial state.
type Queued struct{}

// Processing means a worker owns the job.
type Processing struct{}

// Completed carries the embedding result. Vector2D is always present.
type Completed struct {
	Vector2D  Vector2D
	Embedding []float32
	Concepts  []string
}

// Failed carries the failure reason shown to polling clients.
type Failed struct {
	Reason string
}

func (Queued) Status() Status     { return StatusQueued }
func (Processing) Status() Status { return StatusProcessing }
func (Completed) Status() Status  { return StatusCompleted }
func (Failed) Status() Status     { return StatusFailed }

func (Queued) isState()     {}
func (Processing) isState() {}
func (Completed) isState()  {}
func (Failed) isState()     {}

// Job is the embedding job aggregate (immutable value object).
// Transitions return a new Job and never touch the receiver.
type Job struct {
	id        string
	term      string
	state     State
	createdAt time.Time
	updatedAt time.Time
}

// New creates a queued job. term must already be normalized.
func New(id, term string, now time.Time) (Job, error) {
	if id == "" {
		return Job{}, fmt.Errorf("job ID is required")
	}
	if term == "" {
		return Job{}, fmt.Errorf("term is required")
	}
	return Job{id: id, term: term, state: Queued{}, createdAt: now, updatedAt: now}, nil
}

// Reconstruct creates a Job without validation (storage hydration).
func Reconstruct(id, term string, state State, createdAt, updatedAt time.Time) Job {
	if state == nil {
		state = Queued{}
	}
	return Job{id: id, term: term, state: state, createdAt: createdAt, updatedAt: updatedAt}
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// Term returns the normalized research interest.
func (j *Job) Term() string { return j.term }

// State returns the current lifecycle state.
func (j *Job) State() State { return j.state }

// Status returns the current lifecycle label.
func (j *Job) Status() Status { return j.state.Status() }

// CreatedAt returns the creation time.
func (j *Job) CreatedAt() time.Time { return j.createdAt }

// UpdatedAt returns the time of the last transition.
func (j *Job) UpdatedAt() time.Time { return j.updatedAt }

// Result returns the completed payload, if any.
func (j *Job) Result() (Completed, bool) {
	c, ok := j.state.(Completed)
	return c, ok
}

// ErrorMessage returns the failure reason, or "" unless failed.
func (j *Job) ErrorMessage() string {
	if f, ok := j.state.(Failed); ok {
		return f.Reason
	}
	return ""
}

// EmbeddingDim returns the stored embedding length, 0 when absent.
func (j *Job) EmbeddingDim() int {
	if c, ok := j.state.(Completed); ok {
		return len(c.Embedding)
	}
	return 0
}

// Claim moves queued -> processing.
func (j Job) Claim(now time.Time) (Job, error) {
	return j.transition(StatusQueued, Processing{}, now)
}

// Complete moves processing -> completed.
func (j Job) Complete(result Completed, now time.Time) (Job, error) {
	return j.transition(StatusProcessing, result, now)
}

// Fail moves processing -> failed.
func (j Job) Fail(reason string, now time.Time) (Job, error) {
	return j.transition(StatusProcessing, Failed{Reason: reason}, now)
}

func (j Job) transition(from Status, to State, now time.Time) (Job, error) {
	if j.Status() != from {
		return j, fmt.Errorf("%s -> %s: %w", j.Status(), to.Status(), domain.ErrInvalidTransition)
	}
	j.state = to
	j.updatedAt = now
	return j, nil
}
