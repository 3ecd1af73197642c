package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// APIKeyAuth guards mutating endpoints with a static bearer key. An
// empty key disables the guard, which is the expected state in local
// development.
type APIKeyAuth struct {
	apiKey string
	logger *slog.Logger
}

func NewAPIKeyAuth(apiKey string, logger *slog.Logger) *APIKeyAuth {
	if apiKey == "" {
		logger.Warn("API_KEY not set, mutating endpoints are unprotected")
	}
	return &APIKeyAuth{apiKey: apiKey, logger: logger}
}

// Middleware returns the authentication middleware handler
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		expected := "Bearer " + a.apiKey
		got := r.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			a.logger.Warn("Request rejected by API key guard",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
