package middleware

import (
	"net/http"

	"github.com/dukerupert/precrastine/internal/auth"
	"github.com/dukerupert/precrastine/internal/store"
)

// RequireIdentity rejects requests with 401 while nobody is signed in and
// otherwise puts the current identity in the request's AuthContext.
func RequireIdentity(scope store.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cur := scope.Current()
			if cur == nil {
				writeError(w, http.StatusUnauthorized, "not signed in")
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{Identity: *cur})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
