package handler

import (
	"net/http"

	"payshield/internal/logger"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

type logoutRequest struct {
	UID string `json:"uid"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()

	if h.throttle != nil {
		allowed, err := h.throttle.Allow(ctx, req.Email)
		if err != nil {
			// fail open, the credential check still runs
			logger.Warn("sign-in throttle unavailable", map[string]any{
				"error": err.Error(),
			})
		} else if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
			return
		}
	}

	uid, err := h.credentials.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if h.throttle != nil {
		_ = h.throttle.Reset(ctx, req.Email)
	}

	logger.Info("password sign-in", map[string]any{
		"uid": uid,
		"ip":  c.ClientIP(),
	})

	c.JSON(http.StatusOK, identityResponse{UID: uid, Email: req.Email})
}

// Logout is stateless: the password provider issues no server session,
// so signing out only needs acknowledging.
func (h *Handler) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	logger.Info("password sign-out", map[string]any{
		"uid": req.UID,
		"ip":  c.ClientIP(),
	})

	// Idempotent response
	c.Status(http.StatusNoContent)
}
