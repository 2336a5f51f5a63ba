package handlers

import (
	"net/http"
	"strings"

	"soundcrate/internal/auth"
)

// BasicAuth wraps a handler with HTTP basic authentication
func BasicAuth(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != username || pass != password {
				w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Signed wraps mutating endpoints with HMAC signature verification. The
// signature covers the request path plus an optional expiry, both taken
// from query parameters.
func Signed(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			err := verifier.Verify(r.URL.Path, query.Get("expiry"), query.Get("signature"))
			if err != nil {
				statusCode := http.StatusUnauthorized
				if strings.Contains(err.Error(), "expired") {
					statusCode = http.StatusGone
				}
				http.Error(w, err.Error(), statusCode)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
