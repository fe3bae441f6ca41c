package middleware

import (
	"net/http"

	"github.com/lectorium/server/internal/utils"
)

// StaticBearer guards a route group with a fixed bearer secret. It is a
// client-gate, not user authentication; user identity travels in session
// tokens or request bodies.
func StaticBearer(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if secret == "" || r.Header.Get("Authorization") != "Bearer "+secret {
				utils.JSONError(w, http.StatusForbidden, "No authorization.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
