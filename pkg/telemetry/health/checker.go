// Package health runs readiness checks against the governance service's
// collaborators.
//
// Checks are either critical or advisory. A failing critical check (usage
// storage, company directory) makes the report unhealthy because quota
// decisions fail closed without them. A failing advisory check (the
// completion provider) only degrades it, since classification falls back to
// heuristics.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status values.
const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultTimeout bounds each check when New is given zero.
const DefaultTimeout = 5 * time.Second

// CheckFunc returns nil when the component is usable.
type CheckFunc func(ctx context.Context) error

// Result is the outcome of one check.
type Result struct {
	Status   string        `json:"status"`
	Critical bool          `json:"critical"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ms"`
}

// Report aggregates every check.
type Report struct {
	Status    string            `json:"status"`
	Checks    map[string]Result `json:"checks"`
	CheckedAt time.Time         `json:"checked_at"`
}

type check struct {
	fn       CheckFunc
	critical bool
}

// Checker holds named checks. It is safe for concurrent use.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]check
	timeout time.Duration
}

// New creates a checker with a per-check timeout.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		checks:  make(map[string]check),
		timeout: timeout,
	}
}

// Register adds or replaces a check.
func (c *Checker) Register(name string, critical bool, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check{fn: fn, critical: critical}
}

// Names returns the registered check names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check concurrently and aggregates the results.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]check, len(c.checks))
	for name, ch := range c.checks {
		checks[name] = ch
	}
	c.mu.RUnlock()

	results := make(map[string]Result, len(checks))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, ch := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := c.run(ctx, ch)
			mu.Lock()
			results[name] = r
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := StatusOK
	for _, r := range results {
		if r.Status == StatusOK {
			continue
		}
		if r.Critical {
			status = StatusUnhealthy
			break
		}
		status = StatusDegraded
	}

	return Report{Status: status, Checks: results, CheckedAt: time.Now()}
}

// run executes one check, abandoning it when the timeout elapses.
func (c *Checker) run(ctx context.Context, ch check) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() {
		errCh <- ch.fn(ctx)
	}()

	r := Result{Status: StatusOK, Critical: ch.critical}
	select {
	case err := <-errCh:
		if err != nil {
			r.Status = StatusUnhealthy
			r.Message = err.Error()
		}
	case <-ctx.Done():
		r.Status = StatusUnhealthy
		r.Message = "health check timeout"
	}
	r.Duration = time.Since(start)
	return r
}
