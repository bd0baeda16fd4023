package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentchat/backend/internal/services/user"
)

// ProfileHandler handles profile reads and updates
type ProfileHandler struct {
	userService *user.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(userService *user.Service) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

// GetProfile returns a user's profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := parseUserID(c, c.Query("user_id"))
	if !ok {
		return
	}

	u, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, u)
}

// UpdateProfileRequest is the body for PUT /api/profile
type UpdateProfileRequest struct {
	UserID      string  `json:"user_id" binding:"required"`
	Name        *string `json:"name"`
	Avatar      *string `json:"avatar"`
	Bio         *string `json:"bio"`
	Preferences *string `json:"preferences"`
}

// UpdateProfile applies a partial profile update
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := parseUserID(c, req.UserID)
	if !ok {
		return
	}

	updated, err := h.userService.UpdateProfile(c.Request.Context(), userID, user.UpdateProfileInput{
		Name:        req.Name,
		Avatar:      req.Avatar,
		Bio:         req.Bio,
		Preferences: req.Preferences,
	})
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// GetProfileStats returns per-user activity statistics
func (h *ProfileHandler) GetProfileStats(c *gin.Context) {
	userID, ok := parseUserID(c, c.Query("user_id"))
	if !ok {
		return
	}

	stats, err := h.userService.GetProfileStats(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
