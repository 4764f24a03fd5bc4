package middleware

import (
	"context"
	"net/http"

	"github.com/stackhaven/authgate/internal/auth"
	"github.com/stackhaven/authgate/internal/models"
	"github.com/stackhaven/authgate/internal/session"
	"github.com/stackhaven/authgate/pkg/debug"
)

// contextKey is an unexported type so nothing outside this package can
// collide with our context values
type contextKey int

const principalKey contextKey = iota

// PrincipalFromContext returns the principal resolved for this request, or
// nil when the request is unauthenticated. Handlers behind RequireAuth can
// rely on a non-nil principal.
func PrincipalFromContext(ctx context.Context) *models.Principal {
	principal, _ := ctx.Value(principalKey).(*models.Principal)
	return principal
}

// WithPrincipal returns a context carrying the resolved principal. Exposed
// for handler tests.
func WithPrincipal(ctx context.Context, principal *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// ResolveSession resolves the session cookie into a principal and attaches
// it to the request context. Requests without a valid session pass through
// unauthenticated; enforcement is RequireAuth's job.
func ResolveSession(authority *session.Authority) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.SessionTokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			principal := authority.Lookup(token)
			if principal == nil {
				debug.Debug("[AUTH] Session cookie did not resolve to an active session")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuth ensures that only authenticated requests reach the route.
// Denials are a flat 401 with no detail.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Preflight requests never carry credentials
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if PrincipalFromContext(r.Context()) == nil {
			debug.Debug("[AUTH] Unauthenticated request to %s %s", r.Method, r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
