package recommend

import (
	"context"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

// Catalog is the read side of the book catalog.
type Catalog interface {
	Load(ctx context.Context) error
	GetByIdentifiers(ids []int64) map[int64]book.Record
	Categories() []string
	HasCategory(label string) bool
}

// Index returns nearest-neighbor payloads for query text, most similar first.
type Index interface {
	Search(ctx context.Context, text string, k int) ([]domain.Hit, error)
}
