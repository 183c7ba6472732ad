// Package embedding holds embedder decorators: logging, request chunking, and the circuit breaker.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
)

// DefaultMaxAPIBatchSize caps the number of texts sent in one provider request.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder logs every provider call, splits catalog batches into
// provider-sized requests and charges tokens to the request's usage collector
// (see domain.UsageFromContext). With dimensions set it rejects vectors of any
// other length, since a mis-sized vector is silently skipped by the FT index.
// Transport metrics are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	maxBatch int
	dim      int
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. provider and model are attached to every log line.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		maxBatch: DefaultMaxAPIBatchSize,
		logger:   logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// WithMaxBatchSize overrides the per-request chunk size. Non-positive values are ignored.
func (p *InstrumentedEmbedder) WithMaxBatchSize(n int) *InstrumentedEmbedder {
	if n > 0 {
		p.maxBatch = n
	}
	return p
}

// WithDimensions makes every returned vector have exactly dim components.
func (p *InstrumentedEmbedder) WithDimensions(dim int) *InstrumentedEmbedder {
	p.dim = dim
	return p
}

// Embed embeds one query text.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	if err == nil {
		err = p.checkDims(0, result.Embedding)
	}
	if err != nil {
		p.logger.Error("Embedding request failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("text_len", len(text)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)
	return result, nil
}

// BatchEmbed embeds catalog descriptions in chunks of at most the configured
// batch size. Chunks run in order and the first failure aborts the batch.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	chunks := 0
	for offset := 0; offset < len(texts); offset += p.maxBatch {
		chunk := texts[offset:min(offset+p.maxBatch, len(texts))]
		res, err := domain.EmbedAll(ctx, p.inner, chunk)
		if err == nil {
			for i, vec := range res.Embeddings {
				if err = p.checkDims(offset+i, vec); err != nil {
					break
				}
			}
		}
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Int("batch_size", len(texts)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed texts %d..%d of %d: %w",
				offset, offset+len(chunk)-1, len(texts), err)
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
		chunks++
	}

	p.logger.Debug("Batch embedding completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("requests", chunks),
		zap.Int("total_tokens", out.TotalTokens),
	)
	domain.UsageFromContext(ctx).AddTokens(out.TotalTokens)
	return out, nil
}

func (p *InstrumentedEmbedder) checkDims(i int, vec []float32) error {
	if p.dim > 0 && len(vec) != p.dim {
		return fmt.Errorf("vector %d has %d dimensions, want %d: %w", i, len(vec), p.dim, domain.ErrEmbeddingProviderError)
	}
	return nil
}
