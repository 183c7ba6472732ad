package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths serve without an API key: the welcome page, health checks and metrics.
var publicPaths = map[string]struct{}{
	"/":        {},
	"/health":  {},
	"/metrics": {},
}

const authChallenge = `Bearer realm="bookrec"`

// apiKeySet compares presented keys against configured ones in constant time.
// Keys are hashed first so comparisons do not leak key length.
type apiKeySet [][sha256.Size]byte

func newAPIKeySet(keys []string) apiKeySet {
	set := make(apiKeySet, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			set = append(set, sha256.Sum256([]byte(k)))
		}
	}
	return set
}

func (s apiKeySet) contains(key string) bool {
	sum := sha256.Sum256([]byte(key))
	found := 0
	for i := range s {
		found |= subtle.ConstantTimeCompare(s[i][:], sum[:])
	}
	return found == 1
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BearerAuthMiddleware requires a configured API key on every route except publicPaths.
// With no non-empty keys configured it is a pass-through.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := newAPIKeySet(apiKeys)

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}
			token, ok := bearerToken(header)
			if !ok {
				unauthorized(w, "authorization header must use Bearer scheme")
				return
			}
			if !keys.contains(token) {
				unauthorized(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", authChallenge)
	writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, msg)
}
