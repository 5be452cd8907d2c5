// Package health aggregates store and embedding-provider probes for GET /health.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultProbeTimeout bounds each individual probe.
const DefaultProbeTimeout = 3 * time.Second

// Status is the aggregated health status.
type Status string

const (
	// Healthy means every probe passed.
	Healthy Status = "ok"
	// Degraded means at least one probe failed.
	Degraded Status = "degraded"
)

// CheckResult is one probe outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report is rendered as the data of the /health envelope.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service runs all probes concurrently.
type Service struct {
	probes  map[string]func(context.Context) error
	timeout time.Duration
}

// New creates a Service. stores maps a check name ("redis", "papers_db") to
// its pinger; embedding can be nil.
func New(stores map[string]StorePinger, embedding EmbeddingChecker) *Service {
	probes := make(map[string]func(context.Context) error, len(stores)+1)
	for name, p := range stores {
		probes[name] = p.Ping
	}
	if embedding != nil {
		probes["embedding"] = embedding.HealthCheck
	}
	return &Service{probes: probes, timeout: DefaultProbeTimeout}
}

// WithTimeout overrides the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every probe. A probe that exceeds the timeout counts as failed.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.probes))
	)

	var g errgroup.Group
	for name, probe := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := result(probe(pctx))

			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
