package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional dependency is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates a component required to serve recommendations is not ready.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// DefaultCheckTimeout bounds each dependency check.
const DefaultCheckTimeout = 2 * time.Second

type readiness struct {
	name    string
	checker ReadinessChecker
}

type dependency struct {
	name  string
	check func(ctx context.Context) error
}

// Service reports whether bookrec can serve recommendations. Required
// components (catalog, vector index) decide between ok and error; the
// database and embedding provider can only degrade the report.
type Service struct {
	ready   []readiness
	deps    []dependency
	timeout time.Duration
}

// New creates a Service. db and embedding can be nil.
func New(db DBPinger, embedding EmbeddingChecker) *Service {
	s := &Service{timeout: DefaultCheckTimeout}
	if db != nil {
		s.deps = append(s.deps, dependency{name: "database", check: db.Ping})
	}
	if embedding != nil {
		s.deps = append(s.deps, dependency{name: "embedding", check: embedding.HealthCheck})
	}
	return s
}

// WithReadiness adds a required component. A failing one makes the report Unhealthy.
func (s *Service) WithReadiness(name string, r ReadinessChecker) *Service {
	s.ready = append(s.ready, readiness{name: name, checker: r})
	sort.SliceStable(s.ready, func(i, j int) bool { return s.ready[i].name < s.ready[j].name })
	return s
}

// WithTimeout overrides how long a single dependency check may take.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check evaluates readiness, then runs the dependency checks concurrently.
// A check that outlives the timeout counts as failed.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.ready)+len(s.deps))
	status := Healthy

	for _, r := range s.ready {
		checks[r.name] = result(r.checker.Ready())
		if checks[r.name] == CheckError {
			status = Unhealthy
		}
	}

	results := make([]CheckResult, len(s.deps))
	var wg sync.WaitGroup
	for i, d := range s.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.run(ctx, d)
		}()
	}
	wg.Wait()

	for i, d := range s.deps {
		checks[d.name] = results[i]
		if results[i] == CheckError && status == Healthy {
			status = Degraded
		}
	}
	return Report{Status: status, Checks: checks}
}

// run gives up on a check at the timeout even if the check ignores its context.
func (s *Service) run(ctx context.Context, d dependency) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.check(ctx) }()
	select {
	case err := <-done:
		return result(err)
	case <-ctx.Done():
		return CheckError
	}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
