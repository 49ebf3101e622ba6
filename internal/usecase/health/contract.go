package health

import "context"

// StorePinger checks one tier store's availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// DependencyChecker checks an optional external dependency.
type DependencyChecker interface {
	HealthCheck(ctx context.Context) error
}
