package embcache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/db"
	"github.com/kailas-cloud/bookrec/internal/domain"
)

// countingEmbedder maps each text to {len(text), words} and records every batch it sees.
type countingEmbedder struct {
	err     error
	batches [][]string
	singles []string
}

func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), float32(len(strings.Fields(text)))}
}

func (e *countingEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.singles = append(e.singles, text)
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	tokens := len(strings.Fields(text))
	return domain.EmbeddingResult{Embedding: vectorFor(text), PromptTokens: tokens, TotalTokens: tokens}, nil
}

func (e *countingEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.batches = append(e.batches, append([]string(nil), texts...))
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	res := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, text := range texts {
		res.Embeddings[i] = vectorFor(text)
		res.PromptTokens += len(strings.Fields(text))
	}
	res.TotalTokens = res.PromptTokens
	return res, nil
}

// memKV is an in-memory store. getErr and setErr, when set, fail every call.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type fixture struct {
	cache   *CachedEmbedder
	inner   *countingEmbedder
	kv      *memKV
	results *prometheus.CounterVec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_embedding_cache_total",
	}, []string{"result"})
	f := &fixture{inner: &countingEmbedder{}, kv: newMemKV(), results: results}
	f.cache = New(f.inner, f.kv, "text-embedding-3-small", results, zap.NewNop())
	return f
}

// seed stores the vector the inner embedder would produce for text.
func (f *fixture) seed(t *testing.T, text string) {
	t.Helper()
	if err := f.kv.SetWithTTL(context.Background(), f.cache.cacheKey(text), db.EncodeVector(vectorFor(text)), 0); err != nil {
		t.Fatalf("seed %q: %v", text, err)
	}
}
