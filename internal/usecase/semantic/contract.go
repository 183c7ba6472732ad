package semantic

import (
	"context"

	"github.com/kailas-cloud/bookrec/internal/domain"
)

// Backend stores description vectors and answers nearest-neighbor queries.
type Backend interface {
	Ensure(ctx context.Context, dim int) error
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, docs []domain.IndexDocument) error
	Search(ctx context.Context, vector []float32, k int) ([]domain.Hit, error)
	Drop(ctx context.Context) error
}

// PayloadSource yields the tagged descriptions the index is built from.
type PayloadSource interface {
	Payloads(ctx context.Context) ([]string, error)
}
