// Package authmw guards the careline API with a shared bearer token.
package authmw

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/linnemanlabs/go-core/log"
)

// CodeUnauthorized is the error code returned on a rejected request.
const CodeUnauthorized = "unauthorized"

const bearerPrefix = "Bearer "

// BearerToken returns middleware that requires "Authorization: Bearer <token>".
// An empty token disables the check so local deployments can run open.
// Tokens are compared in constant time.
func BearerToken(token string) func(http.Handler) http.Handler {
	if token == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, bearerPrefix) {
				deny(w, r, "missing or malformed authorization header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(auth[len(bearerPrefix):]), expected) != 1 {
				deny(w, r, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, msg string) {
	log.FromContext(r.Context()).Warn(r.Context(), "rejected unauthenticated request",
		"path", r.URL.Path,
		"reason", msg,
	)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="careline"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": CodeUnauthorized, "message": msg},
	})
}
