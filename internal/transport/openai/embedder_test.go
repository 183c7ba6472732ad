package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// embeddingCall is the request body the provider receives.
type embeddingCall struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	Dimensions     int      `json:"dimensions"`
	EncodingFormat string   `json:"encoding_format"`
}

// fakeProvider is an OpenAI-compatible /embeddings endpoint. Input i gets the
// vector {i+1, len(input i)}; vectors are listed in reverse so callers must
// reorder by index. Each input costs one token per word.
type fakeProvider struct {
	mu       sync.Mutex
	requests []embeddingCall
	auth     []string

	drop int // vectors omitted from the response
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/models" {
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
		return
	}
	if r.URL.Path != "/embeddings" {
		http.NotFound(w, r)
		return
	}

	var req embeddingCall
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	resp := openai.EmbeddingResponse{Object: "list", Model: openai.EmbeddingModel(req.Model)}
	tokens := 0
	for i := len(req.Input) - 1; i >= f.drop; i-- {
		resp.Data = append(resp.Data, openai.Embedding{
			Object:    "embedding",
			Index:     i,
			Embedding: []float32{float32(i + 1), float32(len(req.Input[i]))},
		})
	}
	for _, in := range req.Input {
		tokens += len(strings.Fields(in))
	}
	resp.Usage = openai.Usage{PromptTokens: tokens, TotalTokens: tokens}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestEmbedder(t *testing.T, h http.Handler, dims int) *Embedder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewEmbedder(&Config{
		APIKey:     "sk-bookrec",
		BaseURL:    srv.URL,
		Model:      "text-embedding-3-small",
		Dimensions: dims,
		Provider:   "openai",
	})
}

func TestEmbed_QueryText(t *testing.T) {
	fp := &fakeProvider{}
	e := newTestEmbedder(t, fp, 2)

	res, err := e.Embed(context.Background(), "a story about forgiveness")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != 2 || res.Embedding[0] != 1 || res.Embedding[1] != 25 {
		t.Errorf("embedding = %v, want [1 25]", res.Embedding)
	}
	if res.PromptTokens != 4 || res.TotalTokens != 4 {
		t.Errorf("tokens = %d/%d, want 4/4", res.PromptTokens, res.TotalTokens)
	}

	req := fp.requests[0]
	if req.Model != "text-embedding-3-small" || req.Dimensions != 2 {
		t.Errorf("request = model %q dims %d", req.Model, req.Dimensions)
	}
	if req.EncodingFormat != string(openai.EmbeddingEncodingFormatFloat) {
		t.Errorf("encoding format = %q", req.EncodingFormat)
	}
	if fp.auth[0] != "Bearer sk-bookrec" {
		t.Errorf("Authorization = %q", fp.auth[0])
	}
}

func TestEmbed_OmitsZeroDimensions(t *testing.T) {
	fp := &fakeProvider{}
	e := newTestEmbedder(t, fp, 0)

	if _, err := e.Embed(context.Background(), "whales"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if fp.requests[0].Dimensions != 0 {
		t.Errorf("dimensions sent = %d, want omitted", fp.requests[0].Dimensions)
	}
}

func TestBatchEmbed_RestoresInputOrder(t *testing.T) {
	fp := &fakeProvider{}
	e := newTestEmbedder(t, fp, 2)
	descriptions := []string{
		"9780002005883 A novel of fathers and sons",
		"9780002261982 Spies and secrets",
		"9780006178736 A haunting tale",
	}

	res, err := e.BatchEmbed(context.Background(), descriptions)
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(fp.requests) != 1 {
		t.Fatalf("requests = %d, want one call for the batch", len(fp.requests))
	}
	for i, v := range res.Embeddings {
		if v[0] != float32(i+1) {
			t.Errorf("embedding %d belongs to input %v", i, v[0]-1)
		}
	}
	if res.TotalTokens != 7+4+4 {
		t.Errorf("total tokens = %d, want 15", res.TotalTokens)
	}
}

func TestBatchEmbed_EmptySkipsProvider(t *testing.T) {
	fp := &fakeProvider{}
	e := newTestEmbedder(t, fp, 2)

	res, err := e.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Fatalf("got %v, %v; want empty result", res, err)
	}
	if len(fp.requests) != 0 {
		t.Error("provider must not be called for an empty batch")
	}
}

func TestEmbedder_ProviderFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.Handler
		batch   []string
		detail  string
	}{
		{
			name:    "missing vectors",
			handler: &fakeProvider{drop: 1},
			batch:   []string{"one", "two"},
			detail:  "1 vectors for 2 inputs",
		},
		{
			name: "rate limited",
			handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
			}),
			batch:  []string{"one"},
			detail: "429",
		},
		{
			name: "empty data",
			handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"object":"list","data":[],"usage":{"prompt_tokens":0,"total_tokens":0}}`))
			}),
			batch:  []string{"one"},
			detail: "0 vectors for 1 inputs",
		},
		{
			name:    "repeated index",
			handler: rawEmbeddings(`[{"index":0,"embedding":[1,2]},{"index":0,"embedding":[3,4]}]`),
			batch:   []string{"one", "two"},
			detail:  "index 0 repeated",
		},
		{
			name:    "index out of range",
			handler: rawEmbeddings(`[{"index":0,"embedding":[1,2]},{"index":2,"embedding":[3,4]}]`),
			batch:   []string{"one", "two"},
			detail:  "index 2 out of range",
		},
		{
			name:    "empty vector",
			handler: rawEmbeddings(`[{"index":0,"embedding":[]}]`),
			batch:   []string{"one"},
			detail:  "embedding 0 is empty",
		},
		{
			name: "detail body",
			handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"detail":"input too long"}`))
			}),
			batch:  []string{"one"},
			detail: "input too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEmbedder(t, tt.handler, 2)
			_, err := e.BatchEmbed(context.Background(), tt.batch)
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q should mention %q", err.Error(), tt.detail)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	if err := newTestEmbedder(t, &fakeProvider{}, 2).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	down := newTestEmbedder(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}), 2)
	if err := down.HealthCheck(context.Background()); err == nil {
		t.Error("expected error from unavailable provider")
	}
}

func TestBatchEmbed_CancelledCallerKeepsCause(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	e := newTestEmbedder(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-release }), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.BatchEmbed(ctx, []string{"one"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want both ErrEmbeddingProviderError and context.Canceled", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
		wantMsg  string
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, "rate_limited", "429: slow down"},
		{"bad key", &openai.APIError{HTTPStatusCode: 401, Message: "invalid api key"}, "auth", "invalid api key"},
		{"provider outage", &openai.RequestError{HTTPStatusCode: 503, Body: []byte("upstream unavailable")}, "server_error", "upstream unavailable"},
		{"detail body", &openai.RequestError{HTTPStatusCode: 422, Body: []byte(`{"detail":"input too long"}`)}, "api_error", "422: input too long"},
		{"dial failure", errors.New("dial tcp 10.0.0.7:443: connection refused"), "transport", "connection refused"},
		{"deadline", context.DeadlineExceeded, "timeout", "deadline exceeded"},
		{"cancelled", context.Canceled, "canceled", "context canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := classify(tt.err)
			if kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Errorf("err = %v, want ErrEmbeddingProviderError", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func rawEmbeddings(data string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":` + data + `,"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	})
}
