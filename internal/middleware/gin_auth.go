package middleware

import (
	"net/http"

	"payshield/internal/auth"

	"github.com/gin-gonic/gin"
)

// GinRequireAuth adapts the net/http RequireAuth guard to Gin.
func GinRequireAuth(a *AuthMiddleware) gin.HandlerFunc {
	return ginAdapt(a.RequireAuth)
}

// GinRequireRole adapts the net/http RequireRole guard to Gin.
func GinRequireRole(a *AuthMiddleware, role auth.Role) gin.HandlerFunc {
	return ginAdapt(func(next http.Handler) http.Handler {
		return a.RequireRole(role, next)
	})
}

func ginAdapt(guard func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if rec, ok := UserFromContext(r.Context()); ok {
				c.Set("user", rec)
			}
			c.Next()
		})

		guard(next).ServeHTTP(c.Writer, c.Request)

		// If the guard already handled the response, stop Gin chain
		if c.Writer.Written() {
			c.Abort()
			return
		}
	}
}
