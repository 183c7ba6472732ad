package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/bookrec/internal/config"
	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/metrics"
	"github.com/kailas-cloud/bookrec/internal/repository/badgerkv"
	"github.com/kailas-cloud/bookrec/internal/repository/embcache"
	"github.com/kailas-cloud/bookrec/internal/transport/local"
	openaiEmb "github.com/kailas-cloud/bookrec/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/bookrec/internal/usecase/embedding"
)

// embedders holds the decorated embedders for indexing and querying plus
// the raw provider used for health checks.
type embedders struct {
	provider domain.Embedder
	document domain.Embedder
	query    domain.Embedder
}

// buildEmbedders assembles the decorator chain:
// Provider -> Breaker -> Cached -> Instrumented -> Instruction.
func (a *app) buildEmbedders() (embedders, error) {
	cfg := a.cfg.Embedding
	logger := a.logger.Named("embedding")

	var base domain.Embedder
	switch cfg.Provider {
	case config.ProviderLocal:
		base = local.NewEmbedder(cfg.Dimensions)
	default:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	}

	embedder := base
	if cfg.Breaker.ConsecutiveFailures > 0 {
		embedder = embeddinguc.NewBreakerEmbedder(embedder, cfg.Provider, embeddinguc.BreakerConfig{
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			OpenTimeout:         time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
			HalfOpenRequests:    cfg.Breaker.HalfOpenRequests,
		}, logger)
	}

	switch cfg.Cache.Backend {
	case config.CacheStore:
		embedder = embcache.New(embedder, a.store, cfg.Model, metrics.EmbeddingCacheTotal, logger).
			WithDimensions(cfg.Dimensions).
			WithTTL(cfg.Cache.TTL())
	case config.CacheBadger:
		kv, err := badgerkv.Open(cfg.Cache.BadgerDir, a.logger)
		if err != nil {
			return embedders{}, fmt.Errorf("open embedding cache: %w", err)
		}
		a.onClose(func() { _ = kv.Close() })
		embedder = embcache.New(embedder, kv, cfg.Model, metrics.EmbeddingCacheTotal, logger).
			WithDimensions(cfg.Dimensions).
			WithTTL(cfg.Cache.TTL())
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger).
		WithMaxBatchSize(cfg.MaxBatchSize).
		WithDimensions(cfg.Dimensions)

	// Instruction prefix is outermost so the cache key includes it.
	return embedders{
		provider: base,
		document: withInstruction(embedder, cfg.DocumentInstruction),
		query:    withInstruction(embedder, cfg.QueryInstruction),
	}, nil
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
