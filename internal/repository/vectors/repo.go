// Package vectors stores book description embeddings in a Valkey/Redis FT index.
package vectors

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/bookrec/internal/db"
	"github.com/kailas-cloud/bookrec/internal/domain"
)

const (
	fieldPayload = "payload"
	fieldVector  = "vector"
)

// store is the consumer interface for vector index operations (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexDocCount(ctx context.Context, name string) (int, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements the semantic index backend on top of a db.Store.
type Repo struct {
	store store
	name  string
	hnsw  db.HNSW
}

// New creates a repository for the named index.
func New(s store, name string) *Repo {
	return &Repo{store: s, name: name}
}

// WithHNSW sets HNSW build parameters. Zero values keep server defaults.
func (r *Repo) WithHNSW(cfg db.HNSW) *Repo {
	r.hnsw = cfg
	return r
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, r.name)
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, r.name)
}

// Ensure creates the FT index if it does not exist yet.
func (r *Repo) Ensure(ctx context.Context, dim int) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.name, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewVectorIndex(r.indexName(), r.keyPrefix(), fieldVector, dim, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index %s: %w", r.name, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.name, err)
	}
	return nil
}

// Count returns how many documents the index holds; a missing index counts as empty.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.IndexDocCount(ctx, r.indexName())
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count index %s: %w", r.name, err)
	}
	return n, nil
}

// Upsert writes documents as hashes under the index prefix in one pipeline.
func (r *Repo) Upsert(ctx context.Context, docs []domain.IndexDocument) error {
	items := make([]db.HashSetItem, len(docs))
	for i := range docs {
		items[i] = db.HashSetItem{
			Key: r.keyPrefix() + docs[i].Key,
			Fields: map[string]string{
				fieldPayload: docs[i].Payload,
				fieldVector:  string(db.EncodeVector(docs[i].Vector)),
			},
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d docs into %s: %w", len(docs), r.name, err)
	}
	return nil
}

// Search returns the k nearest payloads, closest first.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		VectorField:  fieldVector,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldPayload},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.name, err)
	}

	hits := make([]domain.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, domain.Hit{Payload: e.Fields[fieldPayload], Score: e.Score})
	}
	return hits, nil
}

// Drop removes the index together with its documents.
func (r *Repo) Drop(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName(), true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.name, err)
	}
	return nil
}
