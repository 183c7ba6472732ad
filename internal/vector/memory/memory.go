// Package memory provides an in-process brute-force vector backend for tests and small catalogs.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/bookrec/internal/domain"
)

// Index is an in-memory vector backend ranking by cosine similarity.
type Index struct {
	mu    sync.RWMutex
	dim   int
	keys  map[string]int
	docs  []domain.IndexDocument
	norms []float64
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{keys: make(map[string]int)}
}

// Ensure fixes the vector dimension on first call.
func (m *Index) Ensure(_ context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", dim)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim != 0 && m.dim != dim {
		return fmt.Errorf("%w: index has %d, requested %d", domain.ErrVectorDimMismatch, m.dim, dim)
	}
	m.dim = dim
	return nil
}

// Count returns the number of stored documents.
func (m *Index) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

// Upsert inserts documents, replacing any with the same key.
func (m *Index) Upsert(_ context.Context, docs []domain.IndexDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range docs {
		if m.dim != 0 && len(docs[i].Vector) != m.dim {
			return fmt.Errorf("%w: got %d, expected %d", domain.ErrVectorDimMismatch, len(docs[i].Vector), m.dim)
		}
	}
	for i := range docs {
		doc := docs[i]
		doc.Vector = append([]float32(nil), docs[i].Vector...)
		if pos, ok := m.keys[doc.Key]; ok {
			m.docs[pos] = doc
			m.norms[pos] = norm(doc.Vector)
			continue
		}
		m.keys[doc.Key] = len(m.docs)
		m.docs = append(m.docs, doc)
		m.norms = append(m.norms, norm(doc.Vector))
	}
	return nil
}

// Search returns the k most similar payloads. Equal scores keep insertion order.
func (m *Index) Search(_ context.Context, vector []float32, k int) ([]domain.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dim != 0 && len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query has %d, expected %d", domain.ErrVectorDimMismatch, len(vector), m.dim)
	}
	if k <= 0 || len(m.docs) == 0 {
		return []domain.Hit{}, nil
	}

	qn := norm(vector)
	hits := make([]domain.Hit, len(m.docs))
	for i := range m.docs {
		hits[i] = domain.Hit{Payload: m.docs[i].Payload, Score: cosine(vector, m.docs[i].Vector, qn, m.norms[i])}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Drop removes all documents and forgets the dimension.
func (m *Index) Drop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dim = 0
	m.keys = make(map[string]int)
	m.docs = nil
	m.norms = nil
	return nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
