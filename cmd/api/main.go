package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agentchat/backend/internal/cache"
	"github.com/agentchat/backend/internal/config"
	"github.com/agentchat/backend/internal/database"
	"github.com/agentchat/backend/internal/handlers"
	"github.com/agentchat/backend/internal/jobs"
	"github.com/agentchat/backend/internal/middleware"
	"github.com/agentchat/backend/internal/queue"
	"github.com/agentchat/backend/internal/routes"
	"github.com/agentchat/backend/internal/services/conversation"
	"github.com/agentchat/backend/internal/services/ledger"
	"github.com/agentchat/backend/internal/services/user"
	"github.com/agentchat/backend/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	// Initialize logging
	if err := logger.InitLogger(&logger.Config{
		Level:      cfg.Log.Level,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		zap.L().Fatal("failed to initialize database", zap.Error(err))
	}

	// Initialize the lookup cache; the service degrades to direct database
	// reads when Redis is unavailable
	var cacheClient *cache.Client
	if c, err := cache.NewClient(cfg.Redis); err != nil {
		zap.L().Warn("redis unavailable, referral code caching disabled", zap.Error(err))
	} else {
		cacheClient = c
		defer cacheClient.Close()
	}

	// Initialize services
	ledgerService := ledger.NewService(db, cfg.Points, cacheClient)
	userService := user.NewService(db, ledgerService)
	conversationService := conversation.NewService(db)

	// Background job queue and recurring work
	jobQueue := queue.NewQueue(db)
	reconciliation := jobs.RegisterReconciliationJobHandlers(jobQueue, ledgerService)
	go jobQueue.Start()
	scheduler := jobs.ScheduleRecurringJobs(reconciliation)

	// Initialize router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// 60 reads/s and 10 ledger writes/s per IP
	rateLimiter := middleware.NewRateLimiter(60, 10, 30, 10)
	defer rateLimiter.Stop()

	routes.RegisterRoutes(router, routes.Handlers{
		Users:         handlers.NewUserHandler(userService),
		Points:        handlers.NewPointsHandler(ledgerService),
		Referrals:     handlers.NewReferralHandler(ledgerService),
		Profile:       handlers.NewProfileHandler(userService),
		Conversations: handlers.NewConversationHandler(conversationService),
		Admin:         handlers.NewAdminHandler(userService, reconciliation),
	}, rateLimiter)

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("failed to start server", zap.Error(err))
		}
	}()
	zap.L().Info("server started", zap.String("port", cfg.Server.Port))

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down server")

	scheduler.Stop()
	jobQueue.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Fatal("server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("server exiting")
}
