package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
)

// AuthMiddleware resolves the session cookie into a Session in the request
// context. Auth endpoints, metrics and the health probe are public; every other
// path answers 401 without a valid session.
func AuthMiddleware(store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s, ok := lookupSession(r, store); ok {
				r = r.WithContext(WithSession(r.Context(), s))
			}

			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := SessionFromContext(r.Context()); !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isPublic(path string) bool {
	return strings.HasPrefix(path, "/auth/") ||
		path == "/metrics" ||
		path == "/healthz"
}
