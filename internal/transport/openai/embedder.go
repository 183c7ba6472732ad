package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/metrics"
)

// Embedder calls an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // zero lets the model pick
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Embed embeds a single query.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed embeds texts in one request. Vectors are placed by the index the
// provider reports, so they come back in input order whatever order the
// response lists them in.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		kind, wrapped := classify(err)
		e.fail(kind)
		e.logger.Debug("Embedding request failed",
			zap.Int("inputs", len(texts)), zap.String("kind", kind), zap.Error(err))
		return domain.BatchEmbeddingResult{}, wrapped
	}

	out, err := byIndex(resp.Data, len(texts))
	if err != nil {
		e.fail("bad_response")
		return domain.BatchEmbeddingResult{}, err
	}

	e.succeed(elapsed, resp.Usage)
	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// byIndex orders vectors by their reported index and requires exactly one
// non-empty vector per input.
func byIndex(data []openai.Embedding, n int) ([][]float32, error) {
	if len(data) != n {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs: %w",
			len(data), n, domain.ErrEmbeddingProviderError)
	}
	out := make([][]float32, n)
	for _, d := range data {
		switch {
		case d.Index < 0 || d.Index >= n:
			return nil, fmt.Errorf("embedding index %d out of range for %d inputs: %w",
				d.Index, n, domain.ErrEmbeddingProviderError)
		case out[d.Index] != nil:
			return nil, fmt.Errorf("embedding index %d repeated: %w", d.Index, domain.ErrEmbeddingProviderError)
		case len(d.Embedding) == 0:
			return nil, fmt.Errorf("embedding %d is empty: %w", d.Index, domain.ErrEmbeddingProviderError)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (e *Embedder) succeed(elapsed time.Duration, usage openai.Usage) {
	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(elapsed.Seconds())
	if usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(usage.TotalTokens))
	}
}

func (e *Embedder) fail(kind string) {
	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, kind).Inc()
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		_, wrapped := classify(err)
		return fmt.Errorf("list models: %w", wrapped)
	}
	return nil
}

// classify maps a client error to a metric label and an error that wraps
// domain.ErrEmbeddingProviderError. Transport errors keep their cause, so a
// cancelled caller stays visible to errors.Is(err, context.Canceled).
func classify(err error) (string, error) {
	provider := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := detail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return statusKind(reqErr.HTTPStatusCode),
			fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, msg, provider)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusKind(apiErr.HTTPStatusCode),
			fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, provider)
	}

	kind := "transport"
	switch {
	case errors.Is(err, context.Canceled):
		kind = "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		kind = "timeout"
	}
	return kind, fmt.Errorf("embedding request: %w: %w", provider, err)
}

func statusKind(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return "rate_limited"
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "auth"
	case code >= 500:
		return "server_error"
	default:
		return "api_error"
	}
}

// detail reads the "detail" field some OpenAI-compatible providers return instead of "error".
func detail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}
