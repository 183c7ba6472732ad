// Package query holds the validated retrieval request.
package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/tone"
)

// AllCategories is the category sentinel meaning "no category filter".
const AllCategories = "All"

// Retrieval limits.
const (
	DefaultInitialTopK = 50
	DefaultFinalTopK   = 16
	// MaxQueryLength bounds the text sent to the embedding provider.
	MaxQueryLength = 4096
)

// Query is a validated retrieval request.
type Query struct {
	text        string
	category    string
	tone        tone.Tone
	initialTopK int
	finalTopK   int
}

// New validates and normalizes retrieval parameters.
// Zero counts take the defaults (50/16); negative counts, blank text and
// unknown tones fail with domain.ErrInvalidQuery. Category membership is
// checked by the caller that owns the catalog.
func New(text, category, toneLabel string, initialTopK, finalTopK int) (Query, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Query{}, fmt.Errorf("%w: query text is empty", domain.ErrInvalidQuery)
	}
	if len(trimmed) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if initialTopK < 0 {
		return Query{}, fmt.Errorf("%w: initial_top_k must be positive, got %d", domain.ErrInvalidQuery, initialTopK)
	}
	if finalTopK < 0 {
		return Query{}, fmt.Errorf("%w: final_top_k must be positive, got %d", domain.ErrInvalidQuery, finalTopK)
	}
	if initialTopK == 0 {
		initialTopK = DefaultInitialTopK
	}
	if finalTopK == 0 {
		finalTopK = DefaultFinalTopK
	}

	t, err := tone.Parse(toneLabel)
	if err != nil {
		return Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	if category == "" {
		category = AllCategories
	}

	return Query{
		text:        trimmed,
		category:    category,
		tone:        t,
		initialTopK: initialTopK,
		finalTopK:   finalTopK,
	}, nil
}

// WithMaxTopK returns a copy with initial_top_k clamped to limit (limit <= 0 is a no-op).
func (q Query) WithMaxTopK(limit int) Query {
	if limit > 0 && q.initialTopK > limit {
		q.initialTopK = limit
	}
	return q
}

// Text returns the trimmed query text.
func (q Query) Text() string { return q.text }

// Category returns the requested category label or AllCategories.
func (q Query) Category() string { return q.category }

// FiltersCategory reports whether a category filter applies.
func (q Query) FiltersCategory() bool { return q.category != AllCategories }

// Tone returns the requested ranking tone.
func (q Query) Tone() tone.Tone { return q.tone }

// InitialTopK returns how many candidates to request from the vector index.
func (q Query) InitialTopK() int { return q.initialTopK }

// FinalTopK returns the maximum number of results.
func (q Query) FinalTopK() int { return q.finalTopK }
