package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/query"
	"github.com/kailas-cloud/bookrec/internal/domain/recommendation"
	"github.com/kailas-cloud/bookrec/internal/logger"
	healthuc "github.com/kailas-cloud/bookrec/internal/usecase/health"
	"github.com/kailas-cloud/bookrec/internal/version"
)

const maxRequestBody = 64 << 10

// Recommender is the retrieval surface the HTTP server needs.
type Recommender interface {
	NewQuery(ctx context.Context, text, category, tone string, initialTopK, finalTopK int) (query.Query, error)
	Recommend(ctx context.Context, q query.Query) ([]recommendation.Recommendation, error)
	Categories(ctx context.Context) ([]string, error)
	Tones() []string
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the recommendation HTTP API.
type Server struct {
	recommend     Recommender
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(recommend Recommender, health *healthuc.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		recommend: recommend,
		health:    health,
		logger:    log,
	}
	// Order matters: a provider failure during query embedding also carries ErrIndexUnavailable.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		invalidQueryHandler,
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorCodeIndexUnavailable),
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, ErrorCodeNotReady),
		sentinelHandler(domain.ErrCatalogLoad, http.StatusServiceUnavailable, ErrorCodeCatalogUnavailable),
	}
	return s
}

// Welcome handles GET /.
func (s *Server) Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, WelcomeResponse{
		Message: "Semantic book recommender",
		Version: version.Version,
		Endpoints: map[string]string{
			"GET /categories": "list category filters",
			"GET /tones":      "list tone filters",
			"POST /recommend": "recommend books for a free-text query",
			"GET /health":     "service health",
			"GET /metrics":    "prometheus metrics",
		},
	})
}

// ListCategories handles GET /categories.
func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.recommend.Categories(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: cats})
}

// ListTones handles GET /tones.
func (s *Server) ListTones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TonesResponse{Tones: s.recommend.Tones()})
}

// Recommend handles POST /recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	q, err := s.recommend.NewQuery(ctx, req.Query, req.Category, req.Tone, req.InitialTopK, req.FinalTopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	recs, err := s.recommend.Recommend(ctx, q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, NewRecommendResponse(recs))
}

// setEmbeddingHeaders reports tokens spent on embedding for this request.
func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage == nil || !usage.Used() {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.Tokens()))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmbeddingProviderError,
		domain.ErrInvalidQuery,
		domain.ErrIndexUnavailable,
		domain.ErrNotReady,
		domain.ErrCatalogLoad,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidQueryHandler echoes the validation detail; it only ever describes the caller's input.
func invalidQueryHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidQuery) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

// NewRecommendResponse renders recommendations in API order. nil renders as an empty list.
func NewRecommendResponse(recs []recommendation.Recommendation) RecommendResponse {
	items := make([]Recommendation, len(recs))
	for i := range recs {
		items[i] = recommendationToAPI(recs[i])
	}
	return RecommendResponse{Recommendations: items}
}

func recommendationToAPI(r recommendation.Recommendation) Recommendation {
	return Recommendation{
		ISBN13:      r.ID,
		Title:       r.Title,
		Authors:     r.Authors,
		Description: r.Description,
		Summary:     r.Summary,
		Thumbnail:   r.Thumbnail,
		Category:    r.Category,
		Emotions: Emotions{
			Joy:      r.Emotions.Joy,
			Surprise: r.Emotions.Surprise,
			Anger:    r.Emotions.Anger,
			Fear:     r.Emotions.Fear,
			Sadness:  r.Emotions.Sadness,
		},
	}
}
