package vectors

import (
	"context"
	"testing"

	"github.com/kailas-cloud/bookrec/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn   func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn     func(ctx context.Context, name string, deleteDocs bool) error
	indexExistsFn   func(ctx context.Context, name string) (bool, error)
	indexDocCountFn func(ctx context.Context, name string) (int, error)
	hsetMultiFn     func(ctx context.Context, items []db.HashSetItem) error
	searchKNNFn     func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name, deleteDocs)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) IndexDocCount(ctx context.Context, name string) (int, error) {
	if m.indexDocCountFn != nil {
		return m.indexDocCountFn(ctx, name)
	}
	return 0, nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "books").WithHNSW(db.HNSW{M: 16, EFConstruction: 200}), ms
}
