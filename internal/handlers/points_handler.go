package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agentchat/backend/internal/models"
	"github.com/agentchat/backend/internal/services/ledger"
)

// PointsHandler handles point transaction requests
type PointsHandler struct {
	ledgerService *ledger.Service
}

// NewPointsHandler creates a new points handler
func NewPointsHandler(ledgerService *ledger.Service) *PointsHandler {
	return &PointsHandler{ledgerService: ledgerService}
}

// GetPointTransactions returns a user's point transactions, newest first
func (h *PointsHandler) GetPointTransactions(c *gin.Context) {
	userID, ok := parseUserID(c, c.Query("user_id"))
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	transactions, err := h.ledgerService.GetUserPointTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch transactions"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// PointsActionRequest is the body for POST /api/points
type PointsActionRequest struct {
	Action      string  `json:"action" binding:"required"`
	UserID      string  `json:"user_id" binding:"required"`
	Points      int64   `json:"points" binding:"required"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	ReferenceID *string `json:"reference_id"`
}

// HandlePointsAction awards or spends points for a user
func (h *PointsHandler) HandlePointsAction(c *gin.Context) {
	var req PointsActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := parseUserID(c, req.UserID)
	if !ok {
		return
	}

	switch req.Action {
	case "award":
		txType := models.TransactionType(req.Type)
		if req.Type == "" {
			txType = models.TransactionTypeBonus
		}
		_, err := h.ledgerService.AwardPoints(c.Request.Context(), userID, req.Points, req.Description, txType, req.ReferenceID)
		if err != nil {
			respondLedgerError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})

	case "spend":
		_, err := h.ledgerService.SpendPoints(c.Request.Context(), userID, req.Points, req.Description, req.ReferenceID)
		if err != nil {
			respondLedgerError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
	}
}

// respondLedgerError maps ledger errors onto HTTP responses. Insufficient
// balance carries a distinct code so clients can branch on it.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientPoints):
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient points", "code": "insufficient_points"})
	case errors.Is(err, ledger.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrDuplicateReferral):
		c.JSON(http.StatusConflict, gin.H{"error": "referral already processed"})
	case errors.Is(err, ledger.ErrSelfReferral):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger operation failed"})
	}
}

// parseUserID validates a user id parameter, writing the error response on failure
func parseUserID(c *gin.Context, raw string) (uuid.UUID, bool) {
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}
