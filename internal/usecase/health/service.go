// Package health aggregates readiness checks over both tier stores and the
// optional external dependencies.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; queries still answer from the
	// surviving tier.
	Degraded Status = "degraded"
	// Unhealthy indicates both tiers are unreachable.
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

// Service coordinates health checks.
type Service struct {
	lt       StorePinger
	hot      StorePinger
	embedder DependencyChecker
	enricher DependencyChecker
}

// New creates a Service. embedder and enricher can be nil.
func New(lt, hot StorePinger, embedder, enricher DependencyChecker) *Service {
	return &Service{lt: lt, hot: hot, embedder: embedder, enricher: enricher}
}

// Check runs health checks against all components. Both tiers down is the
// only unhealthy condition, mirroring the query path's total-failure rule.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["longterm"] = ping(ctx, s.lt)
	checks["hotcache"] = ping(ctx, s.hot)

	if s.embedder != nil {
		checks["embedding"] = depCheck(ctx, s.embedder)
	}
	if s.enricher != nil {
		checks["enricher"] = depCheck(ctx, s.enricher)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["longterm"] == CheckError && checks["hotcache"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func ping(ctx context.Context, p StorePinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}

func depCheck(ctx context.Context, c DependencyChecker) CheckResult {
	if err := c.HealthCheck(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
