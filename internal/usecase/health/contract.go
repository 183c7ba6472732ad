package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// ReadinessChecker reports whether a lazily initialized component is usable.
type ReadinessChecker interface {
	Ready() error
}
