package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"respirapt-backend/config"
	v1 "respirapt-backend/internal/delivery/http/v1"
	"respirapt-backend/internal/metrics"
	"respirapt-backend/internal/repository/postgres"
	"respirapt-backend/internal/supabase"
	"respirapt-backend/internal/usecase"
	"respirapt-backend/pkg/auth"
	"respirapt-backend/pkg/database"
	"respirapt-backend/pkg/logger"
	"respirapt-backend/pkg/payments"
	"respirapt-backend/pkg/redis"

	"github.com/go-playground/validator/v10"
)

// @title           RespiraPT Backend API
// @version         1.0
// @description     Backend for the RespiraPT quit-smoking app using Clean Architecture.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init()
	logger.Log.Info("Starting respirapt backend", "port", cfg.Port)

	// 3. Setup Database
	dbPool, err := database.NewPostgresConnection(cfg.DBUrl)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if cfg.MigrationsPath != "" {
		if err := database.RunMigrations(cfg.DBUrl, cfg.MigrationsPath); err != nil {
			logger.Log.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// 4. Setup Redis (rate limiting; in-memory fallback when absent)
	if cfg.UpstashRedisURL != "" {
		if err := redis.Initialize(redis.Config{
			URL:      cfg.UpstashRedisURL,
			Password: cfg.UpstashRedisPassword,
		}); err != nil {
			logger.Log.Warn("Redis unavailable, rate limiting falls back to memory", "error", err)
		} else {
			defer redis.Close()
		}
	}

	// 5. Setup Repositories
	userRepo := postgres.NewUserRepository(dbPool)
	taskRepo := postgres.NewTaskRepository(dbPool)
	progressRepo := postgres.NewProgressRepository(dbPool)

	// 6. Setup UseCases
	validate := validator.New()
	authUC := usecase.NewAuthUsecase(userRepo)
	progressUC := usecase.NewProgressUsecase(progressRepo, userRepo, cfg.CigarettePriceCents, cfg.MinutesPerCigarette)
	taskUC := usecase.NewTaskUsecase(taskRepo, progressUC)
	onboardingUC := usecase.NewOnboardingUsecase(userRepo, taskUC, validate)
	gateway := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.FrontendURL)
	billingUC := usecase.NewBillingUsecase(gateway, userRepo)

	// 7. Setup Auth Provider (JWKS) and Supabase client
	jwksURL := cfg.SupabaseUrl + "/auth/v1/.well-known/jwks.json"
	jwksProvider := auth.NewProvider(jwksURL)
	sb := supabase.NewClient(cfg.SupabaseUrl, cfg.SupabaseKey)

	// 8. Metrics
	metrics.MustRegister()

	// 9. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:       authUC,
		OnboardingUC: onboardingUC,
		TaskUC:       taskUC,
		ProgressUC:   progressUC,
		BillingUC:    billingUC,
		Supabase:     sb,
		JWKSProvider: jwksProvider,
		Config:       cfg,
	})

	// 10. Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
