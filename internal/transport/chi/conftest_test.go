package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PoYaSharonLin/Sparko-api/internal/db/gormdb"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
	dompaper "github.com/PoYaSharonLin/Sparko-api/internal/domain/paper"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue/memory"
	"github.com/PoYaSharonLin/Sparko-api/internal/repository/jobsql"
	paperrepo "github.com/PoYaSharonLin/Sparko-api/internal/repository/paper"
	"github.com/PoYaSharonLin/Sparko-api/internal/taxonomy"
	healthuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/health"
	interestuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/interest"
	papersuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/papers"
)

const journalsYAML = `
domains:
  is:
    label: Information Systems
    journals: [MIS Quarterly]
`

type harness struct {
	handler   http.Handler
	gdb       *gorm.DB
	interests *interestuc.Service
	papers    *paperrepo.Repo
	queue     *memory.Queue
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, queue.Message) error {
	return errors.New("broker down")
}

func newHarness(t *testing.T, pub interestuc.Publisher) *harness {
	t.Helper()
	logger := zap.NewNop()

	gdb, err := gormdb.Open(gormdb.Config{
		Driver:       gormdb.DriverSQLite,
		DSN:          "file::memory:",
		MaxOpenConns: 1,
	}, logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	jobs := jobsql.New(gdb, logger)
	if err := jobs.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate jobs: %v", err)
	}
	papers := paperrepo.New(gdb, logger)
	if err := papers.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate papers: %v", err)
	}

	q := memory.New(16)
	if pub == nil {
		pub = q
	}
	interests := interestuc.New(jobs, pub, logger)
	listing := papersuc.New(papers, interests, logger)
	health := healthuc.New(map[string]healthuc.StorePinger{"papers_db": gormdb.NewPinger(gdb)}, nil)

	tree, err := taxonomy.Parse([]byte(journalsYAML))
	if err != nil {
		t.Fatalf("parse taxonomy: %v", err)
	}

	srv := NewServer(interests, listing, health, tree, logger).WithEnvironment("test")
	return &harness{
		handler:   NewRouter(srv, RouterConfig{}, logger),
		gdb:       gdb,
		interests: interests,
		papers:    papers,
		queue:     q,
	}
}

type response struct {
	Code   int
	Header http.Header
	Body   []byte
	Env    struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
}

func (h *harness) do(t *testing.T, req *http.Request) response {
	t.Helper()
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)

	res := response{Code: rr.Code, Header: rr.Header()}
	res.Body, _ = io.ReadAll(rr.Body)
	if len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, &res.Env); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, res.Body)
		}
	}
	return res
}

func (h *harness) get(t *testing.T, path string, headers ...string) response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return h.do(t, req)
}

func (h *harness) postJSON(t *testing.T, path, body string) response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return h.do(t, req)
}

func (h *harness) postForm(t *testing.T, path string, form url.Values) response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(t, req)
}

// complete drives a job through claim and completion.
func (h *harness) complete(t *testing.T, id string, res job.Completed) {
	t.Helper()
	ctx := context.Background()
	if ok, err := h.interests.TryClaim(ctx, id); err != nil || !ok {
		t.Fatalf("claim %s: ok=%v err=%v", id, ok, err)
	}
	if err := h.interests.MarkCompleted(ctx, id, res); err != nil {
		t.Fatalf("complete %s: %v", id, err)
	}
}

func (h *harness) seedPapers(t *testing.T, papers ...dompaper.Paper) {
	t.Helper()
	for _, p := range papers {
		if err := h.papers.Upsert(context.Background(), p); err != nil {
			t.Fatalf("seed paper: %v", err)
		}
	}
}

func decodeData[T any](t *testing.T, res response) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(res.Env.Data, &v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, res.Env.Data)
	}
	return v
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}
