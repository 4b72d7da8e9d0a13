package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/makkenzo/spendwise-api/internal/config"
	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
	"github.com/makkenzo/spendwise-api/internal/handler"
	"github.com/makkenzo/spendwise-api/internal/handler/middleware"
	"github.com/makkenzo/spendwise-api/internal/metrics"
	"github.com/makkenzo/spendwise-api/internal/service"
	"github.com/makkenzo/spendwise-api/internal/storage/memstorage"
	"github.com/makkenzo/spendwise-api/internal/storage/postgres"
	"github.com/makkenzo/spendwise-api/internal/storage/redis"
	"github.com/makkenzo/spendwise-api/internal/worker"
	"github.com/makkenzo/spendwise-api/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	windowLocation, err := cfg.RateLimit.Location()
	if err != nil {
		sugarLogger.Fatalf("Failed to resolve rate limit timezone: %v", err)
	}

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	redisClient, err := redis.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	appMetrics := metrics.NewMetrics(prometheus.DefaultRegisterer)

	var apiKeyRepo apikey.Repository = postgres.NewAPIKeyRepository(dbPool, appLogger)
	var windowRepo ratelimit.Repository
	switch cfg.RateLimit.Backend {
	case config.WindowBackendRedis:
		windowRepo = redis.NewWindowRepository(redisClient, cfg.RateLimit.Retention, appLogger)
	default:
		windowRepo = postgres.NewRateLimitRepository(dbPool, appLogger)
	}
	sugarLogger.Infof("Rate limit windows stored in %s (zone %s)", cfg.RateLimit.Backend, windowLocation)

	userRepoMock := memstorage.NewUserRepositoryMock(cfg.Admin.Username, cfg.Admin.PasswordHash)

	authService, err := service.NewAuthService(userRepoMock, &cfg.Admin, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to initialize admin auth: %v", err)
	}
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, cfg.RateLimit.DefaultPerMinute, cfg.RateLimit.DefaultPerDay, appLogger)

	authenticator := service.NewAuthenticator(apiKeyRepo, appMetrics, appLogger)
	limiter := service.NewRateLimiter(service.NewWindowCounter(windowRepo, appLogger), windowLocation, appMetrics, appLogger)
	gate := service.NewGate(authenticator, limiter, appMetrics, appLogger)

	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": dbPool.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}, appLogger)
	authHandler := handler.NewAuthHandler(authService, appLogger)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService, appLogger)
	keyInfoHandler := handler.NewKeyInfoHandler(appLogger)

	adminAuthMiddleware := middleware.AdminAuthMiddleware(authService, appLogger)
	errorMiddleware := middleware.ErrorHandlerMiddleware(appLogger)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(errorMiddleware)
	router.Use(middleware.RecoveryMiddleware(appLogger))

	corsConfig := cors.Config{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-API-Key",
			middleware.RequestIDHeader,
		},
		ExposeHeaders: []string{
			"Content-Length",
			middleware.RequestIDHeader,
			middleware.HeaderRateLimitLimit,
			middleware.HeaderRateLimitRemaining,
			middleware.HeaderRateLimitReset,
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := router.Group("/api/v1/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
	}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/me", middleware.RequireAPIKey(gate, apikey.ScopeRead, appLogger), keyInfoHandler.Me)

		apiKeyRoutes := apiV1.Group("/admin/apikeys")
		apiKeyRoutes.Use(adminAuthMiddleware)
		{
			apiKeyRoutes.POST("", apiKeyHandler.Create)
			apiKeyRoutes.GET("", apiKeyHandler.List)
		}
	}

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, windowRepo, appMetrics, appLogger); err != nil {
			sugarLogger.Error("Asynq worker failed", zap.Error(err))
			return fmt.Errorf("asynq worker error: %w", err)
		}
		sugarLogger.Info("Asynq workers finished gracefully.")
		return nil
	})

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: Context canceled (likely due to OS signal).")
		} else {
			sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
		}
	} else {
		sugarLogger.Info("Application shutdown successfully (all components finished without errors).")
	}

	sugarLogger.Info("Application exiting now.")
}
