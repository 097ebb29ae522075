// Package main runs the event platform HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventflow/backend/config"
	"github.com/eventflow/backend/internal/audit"
	"github.com/eventflow/backend/internal/auth"
	"github.com/eventflow/backend/internal/cache"
	"github.com/eventflow/backend/internal/events"
	"github.com/eventflow/backend/internal/feedback"
	"github.com/eventflow/backend/internal/middleware"
	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/internal/realtime"
	"github.com/eventflow/backend/internal/registrations"
	"github.com/eventflow/backend/internal/scoring"
	"github.com/eventflow/backend/internal/store"
	"github.com/eventflow/backend/pkg/database"
	"github.com/eventflow/backend/pkg/redis"
	"github.com/eventflow/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	var st store.Store
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		st = store.NewMemory()
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
			MaxConns: int32(cfg.Database.MaxConns),
		}, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		st = store.NewPostgres(pool)
	}

	// Event list cache (optional)
	var listCache events.ListCache
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, event cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			listCache = cache.NewEventList(rdb, cfg.Redis.CacheTTL, logger)
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	hub := realtime.NewHub(logger)
	notifier := events.NewNotifier(hub, listCache, logger)
	scorer := scoring.NewEngine(logger)
	recorder := audit.NewRecorder(logger)

	// Auth
	authService := auth.NewService(st, jwtService, logger)
	if err := authService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}
	authHandler := auth.NewHandler(authService, logger)
	auditHandler := audit.NewHandler(st, logger)

	// Events, registrations, feedback
	eventHandler := events.NewHandler(events.NewService(st, scorer, recorder, notifier, logger), logger)
	registrationHandler := registrations.NewHandler(registrations.NewService(st, scorer, recorder, notifier, logger), logger)
	feedbackHandler := feedback.NewHandler(feedback.NewService(st, scorer, recorder, notifier, logger), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "clients": hub.ClientCount()})
	})

	requireAuth := middleware.JWT(jwtService)
	organizerOnly := middleware.RequireRole(models.RoleOrganizer)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	api := router.Group("/api")

	// Auth (public) and admin views
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/audit-logs", requireAuth, adminOnly, auditHandler.List)
	}
	api.GET("/users", requireAuth, adminOnly, authHandler.List)

	eventGroup := api.Group("/events")
	{
		eventGroup.GET("", eventHandler.List)
		eventGroup.GET("/organizer/events", requireAuth, organizerOnly, eventHandler.ListForOrganizer)
		eventGroup.GET("/attendee/events", requireAuth, eventHandler.ListForAttendee)
		eventGroup.GET("/:id", eventHandler.Get)
		eventGroup.GET("/:id/engagement", eventHandler.Engagement)
		eventGroup.POST("", requireAuth, organizerOnly, eventHandler.Create)
		eventGroup.PUT("/:id", requireAuth, organizerOnly, eventHandler.Update)
		eventGroup.DELETE("/:id", requireAuth, organizerOnly, eventHandler.Delete)
		eventGroup.POST("/:id/feedback", requireAuth, feedbackHandler.Submit)
		eventGroup.GET("/:id/feedback", requireAuth, organizerOnly, feedbackHandler.List)
	}

	regGroup := api.Group("/registrations", requireAuth)
	{
		regGroup.POST("/register", registrationHandler.Register)
		regGroup.POST("/unregister", registrationHandler.Unregister)
		regGroup.GET("/my", registrationHandler.ListMine)
		regGroup.GET("/event/:id", organizerOnly, registrationHandler.ListForEvent)
		regGroup.POST("/event/:id/confirm/:registrationId", organizerOnly, registrationHandler.Confirm)
	}

	// WebSocket (token in query is optional)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService.ValidateSocket))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
