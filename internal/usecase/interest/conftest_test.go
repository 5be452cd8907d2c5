package interest

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
)

// memRepo keeps jobs in a map; transitions use job's own rules under a lock.
type memRepo struct {
	mu        sync.Mutex
	jobs      map[string]job.Job
	createErr error
}

func newMemRepo() *memRepo { return &memRepo{jobs: map[string]job.Job{}} }

func (m *memRepo) Create(_ context.Context, j job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.jobs[j.ID()] = j
	return nil
}

func (m *memRepo) Find(_ context.Context, id string) (job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return job.Job{}, domain.ErrJobNotFound
	}
	return j, nil
}

func (m *memRepo) FindCompletedByTerm(_ context.Context, term string) (job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best job.Job
	found := false
	for _, j := range m.jobs {
		if j.Status() != job.StatusCompleted || !strings.EqualFold(j.Term(), term) {
			continue
		}
		if !found || j.UpdatedAt().After(best.UpdatedAt()) {
			best, found = j, true
		}
	}
	if !found {
		return job.Job{}, domain.ErrJobNotFound
	}
	return best, nil
}

func (m *memRepo) TryClaim(_ context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return false, nil
	}
	next, err := j.Claim(now)
	if err != nil {
		return false, nil
	}
	m.jobs[id] = next
	return true, nil
}

func (m *memRepo) Complete(_ context.Context, id string, res job.Completed, now time.Time) error {
	return m.apply(id, func(j job.Job) (job.Job, error) { return j.Complete(res, now) })
}

func (m *memRepo) Fail(_ context.Context, id, reason string, now time.Time) error {
	return m.apply(id, func(j job.Job) (job.Job, error) { return j.Fail(reason, now) })
}

func (m *memRepo) apply(id string, fn func(job.Job) (job.Job, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrInvalidTransition
	}
	next, err := fn(j)
	if err != nil {
		return err
	}
	m.jobs[id] = next
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []queue.Message
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, msg queue.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func newTestService(repo *memRepo, pub *fakePublisher) *Service {
	svc := New(repo, pub, zap.NewNop())
	n := 0
	svc.newID = func() string {
		n++
		return "job-" + string(rune('0'+n))
	}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}
