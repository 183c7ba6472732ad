// Package recommend implements semantic retrieval and tone re-ranking over the book catalog.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/domain/query"
	"github.com/kailas-cloud/bookrec/internal/domain/recommendation"
	"github.com/kailas-cloud/bookrec/internal/domain/tone"
	"github.com/kailas-cloud/bookrec/internal/metrics"
)

// DefaultMaxTopK bounds how many candidates a single query may request from the index.
const DefaultMaxTopK = 500

// Service runs the retrieval pipeline: index search, catalog join,
// category filter, tone re-rank, truncation. It holds no mutable state.
type Service struct {
	catalog Catalog
	index   Index
	maxTopK int
}

// New creates a recommendation service.
func New(catalog Catalog, index Index) *Service {
	return &Service{catalog: catalog, index: index, maxTopK: DefaultMaxTopK}
}

// WithMaxTopK sets the initial_top_k ceiling.
func (s *Service) WithMaxTopK(n int) *Service {
	if n > 0 {
		s.maxTopK = n
	}
	return s
}

// NewQuery builds a query and checks its category against the catalog.
func (s *Service) NewQuery(
	ctx context.Context, text, category, toneLabel string, initialTopK, finalTopK int,
) (query.Query, error) {
	q, err := query.New(text, category, toneLabel, initialTopK, finalTopK)
	if err != nil {
		return query.Query{}, err
	}
	if err := s.checkCategory(ctx, q); err != nil {
		return query.Query{}, err
	}
	return q.WithMaxTopK(s.maxTopK), nil
}

// Retrieve returns at most FinalTopK catalog records for q.
// Malformed payloads and ids missing from the catalog are skipped, never errors.
func (s *Service) Retrieve(ctx context.Context, q query.Query) (records []book.Record, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RetrievalDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	if q.Text() == "" {
		return nil, fmt.Errorf("%w: query text is empty", domain.ErrInvalidQuery)
	}
	if err := s.checkCategory(ctx, q); err != nil {
		return nil, err
	}
	q = q.WithMaxTopK(s.maxTopK)

	hits, err := s.index.Search(ctx, q.Text(), q.InitialTopK())
	if err != nil {
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	candidates := s.join(hits)
	candidates = filterCategory(candidates, q)
	rankByTone(candidates, q.Tone())
	if len(candidates) > q.FinalTopK() {
		candidates = candidates[:q.FinalTopK()]
	}

	metrics.RetrievalResultSize.Observe(float64(len(candidates)))
	return candidates, nil
}

// Recommend retrieves and projects records into their presentation shape.
func (s *Service) Recommend(ctx context.Context, q query.Query) ([]recommendation.Recommendation, error) {
	records, err := s.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	return recommendation.ProjectAll(records), nil
}

// Categories returns "All" followed by the catalog's category labels.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	if err := s.catalog.Load(ctx); err != nil {
		return nil, err
	}
	return s.catalog.Categories(), nil
}

// Tones returns "All" followed by the fixed tone labels.
func (s *Service) Tones() []string {
	return tone.Labels()
}

func (s *Service) checkCategory(ctx context.Context, q query.Query) error {
	if err := s.catalog.Load(ctx); err != nil {
		return err
	}
	if q.FiltersCategory() && !s.catalog.HasCategory(q.Category()) {
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidQuery, q.Category())
	}
	return nil
}

// join maps hits to catalog records in index order. Duplicated ids stay duplicated.
func (s *Service) join(hits []domain.Hit) []book.Record {
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		id, ok := book.ParsePayloadID(h.Payload)
		if !ok {
			metrics.CandidatesDroppedTotal.WithLabelValues("malformed").Inc()
			continue
		}
		ids = append(ids, id)
	}

	known := s.catalog.GetByIdentifiers(ids)
	out := make([]book.Record, 0, len(ids))
	for _, id := range ids {
		r, ok := known[id]
		if !ok {
			metrics.CandidatesDroppedTotal.WithLabelValues("unknown").Inc()
			continue
		}
		out = append(out, r)
	}
	return out
}

func filterCategory(records []book.Record, q query.Query) []book.Record {
	if !q.FiltersCategory() {
		return records
	}
	out := records[:0]
	for i := range records {
		if records[i].Category == q.Category() {
			out = append(out, records[i])
		}
	}
	return out
}

// rankByTone stable-sorts records by the tone's emotion score, highest first.
func rankByTone(records []book.Record, t tone.Tone) {
	if t.IsAll() {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		return t.Score(records[i].Emotions) > t.Score(records[j].Emotions)
	})
}
