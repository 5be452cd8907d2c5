package jobsql

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/db/gormdb"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	domjob "github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) *Repo {
	t.Helper()
	gdb, err := gormdb.Open(gormdb.Config{
		Driver:       gormdb.DriverSQLite,
		DSN:          "file::memory:",
		MaxOpenConns: 1,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	r := New(gdb, zap.NewNop())
	if err := r.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return r
}

func seedQueued(t *testing.T, r *Repo, id, term string) {
	t.Helper()
	j, err := domjob.New(id, term, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Create(context.Background(), j); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateAndFind(t *testing.T) {
	r := newRepo(t)
	seedQueued(t, r, "j1", "graph neural networks")

	j, err := r.Find(context.Background(), "j1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Term() != "graph neural networks" || j.Status() != domjob.StatusQueued {
		t.Errorf("unexpected job: %s %s", j.Term(), j.Status())
	}
}

func TestFind_NotFound(t *testing.T) {
	r := newRepo(t)
	if _, err := r.Find(context.Background(), "nope"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestTryClaim_ConcurrentExactlyOne(t *testing.T) {
	r := newRepo(t)
	seedQueued(t, r, "j1", "x")

	const n = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.TryClaim(context.Background(), "j1", t0.Add(time.Second))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
	j, _ := r.Find(context.Background(), "j1")
	if j.Status() != domjob.StatusProcessing {
		t.Errorf("expected processing, got %s", j.Status())
	}
}

func TestComplete_RoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seedQueued(t, r, "j1", "x")
	if ok, _ := r.TryClaim(ctx, "j1", t0); !ok {
		t.Fatal("expected claim")
	}

	res := domjob.Completed{
		Vector2D:  domjob.Vector2D{X: 0.9, Y: -0.1},
		Embedding: []float32{1, 0, 0},
		Concepts:  []string{"a", "b"},
	}
	if err := r.Complete(ctx, "j1", res, t0.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	j, err := r.Find(ctx, "j1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := j.Result()
	if !ok {
		t.Fatalf("expected completed, got %s", j.Status())
	}
	if got.Vector2D != res.Vector2D || len(got.Embedding) != 3 || len(got.Concepts) != 2 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seedQueued(t, r, "j1", "x")
	_, _ = r.TryClaim(ctx, "j1", t0)
	if err := r.Complete(ctx, "j1", domjob.Completed{Vector2D: domjob.Vector2D{X: 1, Y: 1}}, t0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.Fail(ctx, "j1", "late", t0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	err := r.Complete(ctx, "j1", domjob.Completed{Vector2D: domjob.Vector2D{X: 5, Y: 5}}, t0)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if ok, _ := r.TryClaim(ctx, "j1", t0); ok {
		t.Error("expected claim on completed job to lose")
	}

	j, _ := r.Find(ctx, "j1")
	res, _ := j.Result()
	if res.Vector2D.X != 1 {
		t.Errorf("completed record was overwritten: %+v", res.Vector2D)
	}
}

func TestFindCompletedByTerm_MostRecentWins(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	seedQueued(t, r, "pending", "machine learning")
	for i, id := range []string{"old", "new"} {
		seedQueued(t, r, id, "machine learning")
		_, _ = r.TryClaim(ctx, id, t0)
		res := domjob.Completed{Vector2D: domjob.Vector2D{X: float64(i), Y: 0}}
		if err := r.Complete(ctx, id, res, t0.Add(time.Duration(i+1)*time.Hour)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	j, err := r.FindCompletedByTerm(ctx, "Machine Learning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.ID() != "new" {
		t.Errorf("expected most recent completed job, got %s", j.ID())
	}

	if _, err := r.FindCompletedByTerm(ctx, "other"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestFind_CorruptConcepts(t *testing.T) {
	r := newRepo(t)
	x, y := 0.5, 0.5
	row := jobRow{
		JobID: "j1", Term: "x", Status: "completed",
		VectorX: &x, VectorY: &y, ConceptsJSON: "oops",
		CreatedAt: t0, UpdatedAt: t0,
	}
	if err := r.db.Create(&row).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	j, err := r.Find(context.Background(), "j1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, _ := j.Result()
	if res.Concepts == nil || len(res.Concepts) != 0 {
		t.Errorf("expected empty concepts, got %v", res.Concepts)
	}
}
