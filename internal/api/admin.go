// Package api implements the Management REST API: a thin admin surface
// over the same Room Registry the signaling path uses.
package api

import (
	"crypto/subtle"
	"net/http"
)

// RequireAdminToken gates a handler behind a static bearer comparison
// against the configured MANAGE_TOKEN, rather than validating a JWT.
func RequireAdminToken(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		given := r.Header.Get("Authorization")
		if given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
