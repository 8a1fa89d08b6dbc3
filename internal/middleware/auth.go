package middleware

import (
	"context"
	"net/http"

	"payshield/internal/auth"
	"payshield/internal/gate"
)

// unexported, collision-proof context key
type userContextKeyType struct{}

var userKey = userContextKeyType{}

// UserFromContext extracts the identity record attached by RequireAuth.
func UserFromContext(ctx context.Context) (*auth.Record, bool) {
	rec, ok := ctx.Value(userKey).(*auth.Record)
	return rec, ok
}

// AuthMiddleware guards routes with a tab's access gate. When LoginPath
// is set, rejected requests are redirected there instead of answered
// with an error status.
type AuthMiddleware struct {
	Gate      *gate.Gate
	LoginPath string
}

func NewAuthMiddleware(g *gate.Gate, loginPath string) *AuthMiddleware {
	return &AuthMiddleware{Gate: g, LoginPath: loginPath}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Read the tab's identity
		rec := a.Gate.CurrentUser()
		if rec == nil {
			a.reject(w, r, http.StatusUnauthorized)
			return
		}

		// 2. Attach it to context and continue
		ctx := context.WithValue(r.Context(), userKey, rec)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthMiddleware) RequireRole(role auth.Role, next http.Handler) http.Handler {
	return a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Gate.HasRole(role) {
			a.reject(w, r, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (a *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, status int) {
	if a.LoginPath != "" {
		http.Redirect(w, r, a.LoginPath, http.StatusSeeOther)
		return
	}
	http.Error(w, http.StatusText(status), status)
}
