package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentchat/backend/internal/handlers"
	"github.com/agentchat/backend/internal/middleware"
)

// Handlers bundles everything RegisterRoutes wires up
type Handlers struct {
	Users         *handlers.UserHandler
	Points        *handlers.PointsHandler
	Referrals     *handlers.ReferralHandler
	Profile       *handlers.ProfileHandler
	Conversations *handlers.ConversationHandler
	Admin         *handlers.AdminHandler
}

// RegisterRoutes configures all API routes
func RegisterRoutes(router *gin.Engine, h Handlers, rateLimiter *middleware.RateLimiter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(rateLimiter.IPRateLimiterMiddleware())
	{
		api.POST("/users", h.Users.Signup)

		api.GET("/points", h.Points.GetPointTransactions)
		api.POST("/points", rateLimiter.WriteRateLimiterMiddleware(), h.Points.HandlePointsAction)

		api.GET("/referrals", h.Referrals.GetReferrals)
		api.POST("/referrals", h.Referrals.HandleReferralAction)

		api.GET("/profile", h.Profile.GetProfile)
		api.PUT("/profile", h.Profile.UpdateProfile)
		api.GET("/profile/stats", h.Profile.GetProfileStats)

		api.GET("/conversations", h.Conversations.GetConversations)
		api.POST("/conversations", h.Conversations.LogConversation)
	}

	admin := router.Group("/api/admin")
	admin.Use(rateLimiter.IPRateLimiterMiddleware())
	{
		admin.GET("/stats", h.Admin.GetStats)
		admin.GET("/users", h.Admin.GetUsers)
		admin.POST("/reconcile", h.Admin.TriggerReconciliation)
	}
}
