package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentchat/backend/internal/jobs"
	"github.com/agentchat/backend/internal/services/user"
)

// AdminHandler serves the admin dashboard endpoints
type AdminHandler struct {
	userService    *user.Service
	reconciliation *jobs.ReconciliationJob
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userService *user.Service, reconciliation *jobs.ReconciliationJob) *AdminHandler {
	return &AdminHandler{userService: userService, reconciliation: reconciliation}
}

// GetStats returns aggregate totals for the dashboard
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.userService.GetAdminStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetUsers returns all users, newest first
func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.userService.GetAllUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// TriggerReconciliation enqueues an on-demand ledger reconciliation sweep
func (h *AdminHandler) TriggerReconciliation(c *gin.Context) {
	jobID, err := h.reconciliation.Enqueue()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue reconciliation"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}
