// Package catalog loads the book catalog once and serves read-only lookups.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/domain/query"
)

// Source produces the full set of catalog records.
type Source interface {
	Load(ctx context.Context) ([]book.Record, error)
}

// Store is the in-memory catalog. Load runs the source exactly once; concurrent
// callers block until it finishes and all observe the same outcome.
type Store struct {
	src Source

	once   sync.Once
	err    error
	loaded atomic.Bool

	records    []book.Record
	byID       map[int64]int
	categories []string
}

// New creates a Store over src. Nothing is read until Load.
func New(src Source) *Store {
	return &Store{src: src}
}

// Load reads the source on first call and caches the result, error included.
// Failures wrap domain.ErrCatalogLoad.
func (s *Store) Load(ctx context.Context) error {
	s.once.Do(func() {
		s.err = s.load(ctx)
	})
	return s.err
}

func (s *Store) load(ctx context.Context) error {
	records, err := s.src.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCatalogLoad, err)
	}

	byID := make(map[int64]int, len(records))
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for i := range records {
		r := &records[i]
		if _, dup := byID[r.ID]; dup {
			return fmt.Errorf("%w: duplicate isbn13 %d", domain.ErrCatalogLoad, r.ID)
		}
		byID[r.ID] = i

		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; !ok {
			seen[r.Category] = struct{}{}
			categories = append(categories, r.Category)
		}
	}
	sort.Strings(categories)

	s.records = records
	s.byID = byID
	s.categories = append([]string{query.AllCategories}, categories...)
	s.loaded.Store(true)
	return nil
}

func (s *Store) ready() bool {
	return s.loaded.Load()
}

// Ready returns domain.ErrNotReady until Load has succeeded.
func (s *Store) Ready() error {
	if s.loaded.Load() {
		return nil
	}
	return domain.ErrNotReady
}

// Lookup returns the record with the given identifier.
func (s *Store) Lookup(id int64) (book.Record, bool) {
	if !s.ready() {
		return book.Record{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return book.Record{}, false
	}
	return s.records[i], true
}

// GetByIdentifiers returns the records for the known ids among ids. Unknown ids are absent from the map.
func (s *Store) GetByIdentifiers(ids []int64) map[int64]book.Record {
	out := make(map[int64]book.Record, len(ids))
	for _, id := range ids {
		if r, ok := s.Lookup(id); ok {
			out[id] = r
		}
	}
	return out
}

// Categories returns "All" followed by the sorted distinct non-empty category labels.
func (s *Store) Categories() []string {
	if !s.ready() {
		return []string{query.AllCategories}
	}
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// HasCategory reports whether label is a known category or the "All" sentinel.
func (s *Store) HasCategory(label string) bool {
	if label == query.AllCategories {
		return true
	}
	if !s.ready() {
		return false
	}
	i := sort.SearchStrings(s.categories[1:], label)
	return i < len(s.categories)-1 && s.categories[i+1] == label
}

// Records returns every record in source order. Callers must not modify the slice.
func (s *Store) Records() []book.Record {
	return s.records
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	return len(s.records)
}
