package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentchat/backend/internal/services/user"
)

// UserHandler handles account creation
type UserHandler struct {
	userService *user.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

// SignupRequest is the body for POST /api/users
type SignupRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Name           string `json:"name" binding:"required"`
	ReferredByCode string `json:"referred_by_code"`
}

// Signup registers a new user. The welcome bonus and any referral
// attribution are handled by the user service.
func (h *UserHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.userService.CreateUser(c.Request.Context(), user.CreateUserInput{
		Email:          req.Email,
		Name:           req.Name,
		ReferredByCode: req.ReferredByCode,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, created)
}
