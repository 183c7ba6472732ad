package chi

import (
	"net/http"
	"time"

	gochi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/metrics"
)

// RouterConfig holds the middleware settings of the HTTP API.
type RouterConfig struct {
	APIKeys            []string
	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
}

// NewRouter mounts the API routes behind the standard middleware chain.
func NewRouter(s *Server, cfg RouterConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gochi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chimw.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(CORS(cfg.CORSAllowedOrigins))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/", s.Welcome)
	r.Get("/categories", s.ListCategories)
	r.Get("/tones", s.ListTones)
	r.With(RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).Post("/recommend", s.Recommend)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
	return r
}
