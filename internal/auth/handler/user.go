package handler

import (
	"errors"
	"net/http"
	"strings"

	"payshield/internal/logger"
	"payshield/internal/profile"

	"github.com/gin-gonic/gin"
)

// UserByEmail returns the profile for an email. A changed external id is
// written back, since the identity provider already vouched for it.
func (h *Handler) UserByEmail(c *gin.Context) {
	var req profile.ByEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()

	p, err := h.profiles.FindByEmail(ctx, req.Email)
	if errors.Is(err, profile.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}
	if err != nil {
		logger.Error("profile lookup failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "profile lookup failed"})
		return
	}

	if req.ExternalID != "" && p.ExternalID != req.ExternalID {
		if err := h.profiles.UpdateExternalID(ctx, req.Email, req.ExternalID); err != nil {
			logger.Error("external id refresh failed", map[string]any{
				"error": err.Error(),
			})
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "profile update failed"})
			return
		}
		p.ExternalID = req.ExternalID
	}

	c.JSON(http.StatusOK, p)
}

// CreateUser creates a profile, or returns the existing one for the email.
func (h *Handler) CreateUser(c *gin.Context) {
	var req profile.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.ExternalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and external_id are required"})
		return
	}
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	if req.Balance.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "balance must not be negative"})
		return
	}

	p, created, err := h.profiles.Create(c.Request.Context(), req)
	if err != nil {
		logger.Error("profile create failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "profile create failed"})
		return
	}

	resp := profile.CreateResponse{User: *p}
	if created {
		resp.Message = "User created successfully"
		logger.Info("profile created", map[string]any{
			"profile_id": p.ID,
			"role":       p.Role.String(),
		})
	}

	c.JSON(http.StatusOK, resp)
}
