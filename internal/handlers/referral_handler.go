package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentchat/backend/internal/services/ledger"
)

// ReferralHandler handles referral queries and code validation
type ReferralHandler struct {
	ledgerService *ledger.Service
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(ledgerService *ledger.Service) *ReferralHandler {
	return &ReferralHandler{ledgerService: ledgerService}
}

// GetReferrals returns either a user's referral list or, with
// action=stats, the aggregate referral statistics.
func (h *ReferralHandler) GetReferrals(c *gin.Context) {
	userID, ok := parseUserID(c, c.Query("user_id"))
	if !ok {
		return
	}

	if c.Query("action") == "stats" {
		stats, err := h.ledgerService.GetReferralStats(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch referral stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
		return
	}

	referrals, err := h.ledgerService.GetUserReferrals(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch referrals"})
		return
	}
	c.JSON(http.StatusOK, referrals)
}

// ReferralActionRequest is the body for POST /api/referrals
type ReferralActionRequest struct {
	Action       string `json:"action" binding:"required"`
	ReferralCode string `json:"referral_code"`
}

// HandleReferralAction validates a referral code
func (h *ReferralHandler) HandleReferralAction(c *gin.Context) {
	var req ReferralActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Action != "validate" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
		return
	}

	valid, err := h.ledgerService.ValidateReferralCode(c.Request.Context(), req.ReferralCode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate referral code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
