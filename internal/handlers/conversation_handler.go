package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agentchat/backend/internal/services/conversation"
)

// ConversationHandler handles conversation logging and history
type ConversationHandler struct {
	conversationService *conversation.Service
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversationService *conversation.Service) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// GetConversations returns a user's conversation history, newest first
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	userID, ok := parseUserID(c, c.Query("user_id"))
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	conversations, err := h.conversationService.GetUserConversations(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch conversations"})
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// LogConversationRequest is the body for POST /api/conversations
type LogConversationRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Prompt     string `json:"prompt" binding:"required"`
	Response   string `json:"response" binding:"required"`
	TokensUsed int64  `json:"tokens_used"`
}

// LogConversation stores an exchange and updates the user's token tally
func (h *ConversationHandler) LogConversation(c *gin.Context) {
	var req LogConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := parseUserID(c, req.UserID)
	if !ok {
		return
	}

	conv, err := h.conversationService.LogConversation(c.Request.Context(), userID, req.Prompt, req.Response, req.TokensUsed)
	if err != nil {
		if errors.Is(err, conversation.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log conversation"})
		return
	}

	c.JSON(http.StatusCreated, conv)
}
