package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/metrics"
)

// BreakerConfig configures the embedding circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. Zero disables the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before letting trial requests through.
	OpenTimeout time.Duration
	// HalfOpenRequests is how many trial requests are let through while half-open.
	HalfOpenRequests uint32
}

// BreakerEmbedder fails fast with ErrEmbeddingProviderError while the provider is tripped.
// It never retries.
type BreakerEmbedder struct {
	inner  domain.Embedder
	single *gobreaker.CircuitBreaker[domain.EmbeddingResult]
	batch  *gobreaker.CircuitBreaker[domain.BatchEmbeddingResult]
}

// NewBreakerEmbedder wraps inner with a circuit breaker named after provider.
func NewBreakerEmbedder(inner domain.Embedder, provider string, cfg BreakerConfig, logger *zap.Logger) *BreakerEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}

	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.HalfOpenRequests,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return cfg.ConsecutiveFailures > 0 && c.ConsecutiveFailures >= cfg.ConsecutiveFailures
			},
			IsSuccessful: isSuccessful,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Embedding circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
				metrics.EmbeddingBreakerState.WithLabelValues(name).Set(stateValue(to))
			},
		}
	}

	return &BreakerEmbedder{
		inner:  inner,
		single: gobreaker.NewCircuitBreaker[domain.EmbeddingResult](settings(provider)),
		batch:  gobreaker.NewCircuitBreaker[domain.BatchEmbeddingResult](settings(provider + "_batch")),
	}
}

// Embed runs the inner Embed through the breaker.
func (b *BreakerEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := b.single.Execute(func() (domain.EmbeddingResult, error) {
		return b.inner.Embed(ctx, text)
	})
	return res, breakerErr(err)
}

// BatchEmbed runs the inner batch call through the breaker.
func (b *BreakerEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	res, err := b.batch.Execute(func() (domain.BatchEmbeddingResult, error) {
		return domain.EmbedAll(ctx, b.inner, texts)
	})
	return res, breakerErr(err)
}

// State reports the single-text breaker state.
func (b *BreakerEmbedder) State() gobreaker.State {
	return b.single.State()
}

// isSuccessful keeps caller cancellations from tripping the breaker.
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
