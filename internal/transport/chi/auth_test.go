package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBearerAuthMiddleware(t *testing.T) {
	keys := []string{"reader-key", "ops-key"}

	tests := []struct {
		name    string
		keys    []string
		method  string
		path    string
		header  string
		want    int
		wantMsg string
	}{
		{"no keys configured", nil, "POST", "/recommend", "", http.StatusOK, ""},
		{"only blank keys configured", []string{"", ""}, "POST", "/recommend", "", http.StatusOK, ""},
		{"first key", keys, "POST", "/recommend", "Bearer reader-key", http.StatusOK, ""},
		{"second key", keys, "GET", "/categories", "Bearer ops-key", http.StatusOK, ""},
		{"lowercase scheme", keys, "POST", "/recommend", "bearer reader-key", http.StatusOK, ""},
		{"uppercase scheme", keys, "POST", "/recommend", "BEARER reader-key", http.StatusOK, ""},
		{"extra spaces", keys, "POST", "/recommend", "Bearer   reader-key ", http.StatusOK, ""},
		{"welcome page", keys, "GET", "/", "", http.StatusOK, ""},
		{"health", keys, "GET", "/health", "", http.StatusOK, ""},
		{"metrics", keys, "GET", "/metrics", "", http.StatusOK, ""},
		{"no header", keys, "POST", "/recommend", "", http.StatusUnauthorized, "missing authorization header"},
		{"tones need a key", keys, "GET", "/tones", "", http.StatusUnauthorized, "missing authorization header"},
		{"basic auth", keys, "POST", "/recommend", "Basic cmVhZGVyOmtleQ==", http.StatusUnauthorized, "Bearer scheme"},
		{"scheme only", keys, "POST", "/recommend", "Bearer", http.StatusUnauthorized, "Bearer scheme"},
		{"empty token", keys, "POST", "/recommend", "Bearer ", http.StatusUnauthorized, "Bearer scheme"},
		{"no separator", keys, "POST", "/recommend", "Bearerreader-key", http.StatusUnauthorized, "Bearer scheme"},
		{"bare key", keys, "POST", "/recommend", "reader-key", http.StatusUnauthorized, "Bearer scheme"},
		{"unknown key", keys, "POST", "/recommend", "Bearer reader-key-2", http.StatusUnauthorized, "invalid api key"},
		{"key prefix", keys, "POST", "/recommend", "Bearer reader", http.StatusUnauthorized, "invalid api key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			BearerAuthMiddleware(tt.keys)(next).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if reached != (tt.want == http.StatusOK) {
				t.Errorf("handler reached = %v", reached)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}

			if got := rr.Header().Get("WWW-Authenticate"); got != `Bearer realm="bookrec"` {
				t.Errorf("WWW-Authenticate = %q", got)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != ErrorCodeUnauthorized || !strings.Contains(body.Message, tt.wantMsg) {
				t.Errorf("body = %+v, want %s mentioning %q", body, ErrorCodeUnauthorized, tt.wantMsg)
			}
		})
	}
}

func TestAPIKeySet_Contains(t *testing.T) {
	keys := newAPIKeySet([]string{"alpha", "", "beta"})
	if len(keys) != 2 {
		t.Fatalf("len = %d, want 2 (empty keys skipped)", len(keys))
	}
	for key, want := range map[string]bool{"alpha": true, "beta": true, "alph": false, "alphaa": false, "": false} {
		if got := keys.contains(key); got != want {
			t.Errorf("contains(%q) = %v, want %v", key, got, want)
		}
	}
}
