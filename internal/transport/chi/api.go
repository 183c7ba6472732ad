package chi

// ErrorCode is the machine-readable error code returned in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeRateLimited            ErrorCode = "rate_limited"
	ErrorCodeIndexUnavailable       ErrorCode = "index_unavailable"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeNotReady               ErrorCode = "not_ready"
	ErrorCodeCatalogUnavailable     ErrorCode = "catalog_unavailable"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RecommendRequest is the body of POST /recommend.
// Omitted fields take the server defaults.
type RecommendRequest struct {
	Query       string `json:"query"`
	Category    string `json:"category,omitempty"`
	Tone        string `json:"tone,omitempty"`
	InitialTopK int    `json:"initial_top_k,omitempty"`
	FinalTopK   int    `json:"final_top_k,omitempty"`
}

// Emotions carries the five emotion scores of a book.
type Emotions struct {
	Joy      float64 `json:"joy"`
	Surprise float64 `json:"surprise"`
	Anger    float64 `json:"anger"`
	Fear     float64 `json:"fear"`
	Sadness  float64 `json:"sadness"`
}

// Recommendation is one book in RecommendResponse.
type Recommendation struct {
	ISBN13      int64    `json:"isbn13"`
	Title       string   `json:"title"`
	Authors     string   `json:"authors"`
	Description string   `json:"description"`
	Summary     string   `json:"summary"`
	Thumbnail   string   `json:"thumbnail"`
	Category    string   `json:"category"`
	Emotions    Emotions `json:"emotions"`
}

// RecommendResponse is the body of a successful POST /recommend.
type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// CategoriesResponse is the body of GET /categories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// TonesResponse is the body of GET /tones.
type TonesResponse struct {
	Tones []string `json:"tones"`
}

// WelcomeResponse is the body of GET /.
type WelcomeResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
