package monitoring

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// severity orders statuses so a report takes the worst of its probes.
func (s ProbeStatus) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// WorstStatus returns whichever of a and b is more severe. Unknown statuses count as down.
func WorstStatus(a, b ProbeStatus) ProbeStatus {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results for a liveness or readiness evaluation.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Check is a named dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// NewCheck builds a Check. A nil fn yields a probe that always reports down.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

const defaultProbeBudget = 5 * time.Second

type probeKind int

const (
	liveness probeKind = iota
	readiness
)

// HealthManager holds the liveness and readiness probes served by the health routes.
// Probes of one evaluation run concurrently and share a time budget.
type HealthManager struct {
	mu     sync.RWMutex
	checks [2][]Check
	budget time.Duration
}

func NewHealthManager() *HealthManager {
	return &HealthManager{budget: defaultProbeBudget}
}

// SetBudget bounds how long a single evaluation may take. Non-positive values are ignored.
func (m *HealthManager) SetBudget(budget time.Duration) {
	if budget <= 0 {
		return
	}
	m.mu.Lock()
	m.budget = budget
	m.mu.Unlock()
}

// RegisterLiveness adds a probe answering "is the process working".
func (m *HealthManager) RegisterLiveness(check Check) { m.register(liveness, check) }

// RegisterReadiness adds a probe answering "can the process serve traffic".
func (m *HealthManager) RegisterReadiness(check Check) { m.register(readiness, check) }

func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	return m.evaluate(ctx, liveness)
}

func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	return m.evaluate(ctx, readiness)
}

func (m *HealthManager) register(kind probeKind, check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.checks[kind] = append(m.checks[kind], check)
	m.mu.Unlock()
}

func (m *HealthManager) evaluate(ctx context.Context, kind probeKind) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.RLock()
	checks := slices.Clone(m.checks[kind])
	budget := m.budget
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	results := make([]ProbeResult, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			results[i] = runCheck(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	status := StatusUp
	for _, result := range results {
		status = WorstStatus(status, result.Status)
	}
	return HealthReport{Success: status == StatusUp, Status: status, Checks: results}
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: panicDetails(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
	}()

	return check.Run(ctx)
}

func panicDetails(rec any) string {
	switch v := rec.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// ResultFromError converts a probe error into a result. Timeouts and cancellations degrade
// instead of failing so a slow dependency is distinguishable from a broken one.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	result := ProbeResult{Component: component, Status: StatusUp, Duration: max(duration, 0)}
	if err == nil {
		return result
	}

	result.Status = StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		result.Status = StatusDegraded
	}
	result.Details = err.Error()
	return result
}
