package handler

import (
	"context"
	"net/http"

	"payshield/internal/logger"
	"payshield/internal/profile"

	"github.com/gin-gonic/gin"
)

// CredentialService is the password identity provider behind /auth.
type CredentialService interface {
	Register(ctx context.Context, email, password string) (string, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
}

// SignInThrottle limits password sign-in attempts per email.
type SignInThrottle interface {
	Allow(ctx context.Context, email string) (bool, error)
	Reset(ctx context.Context, email string) error
}

type Handler struct {
	credentials CredentialService
	profiles    profile.Repository
	throttle    SignInThrottle
}

type Option func(*Handler)

func WithThrottle(t SignInThrottle) Option {
	return func(h *Handler) { h.throttle = t }
}

func NewHandler(
	credentials CredentialService,
	profiles profile.Repository,
	opts ...Option,
) *Handler {
	h := &Handler{
		credentials: credentials,
		profiles:    profiles,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/auth/signin", h.Login)
	r.POST("/auth/signup", h.Register)
	r.POST("/auth/signout", h.Logout)

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/user/by-email", h.UserByEmail)
	api.POST("/user/create", h.CreateUser)

	for _, route := range r.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.profiles.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected"})
}
