package domain

import (
	"context"
	"sync"
)

type embeddingUsageKey struct{}

// EmbeddingUsage collects token usage for a single request.
// The handler puts a collector into the context, embedders add to it,
// and the handler reads it back for response headers. Safe for concurrent use:
// a lazy index bootstrap embeds on a worker pool under the request context.
type EmbeddingUsage struct {
	mu     sync.Mutex
	tokens int
	used   bool
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens. A nil collector ignores the call.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.tokens += n
	u.used = true
	u.mu.Unlock()
}

// Tokens returns the total recorded so far.
func (u *EmbeddingUsage) Tokens() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens
}

// Used reports whether any embedding call was recorded, including cache hits with 0 tokens.
func (u *EmbeddingUsage) Used() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.used
}
