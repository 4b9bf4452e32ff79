package v1

import (
	"net/http"
	"time"

	"respirapt-backend/config"
	"respirapt-backend/internal/delivery/http/middleware"
	"respirapt-backend/internal/delivery/http/response"
	"respirapt-backend/internal/domain"
	"respirapt-backend/internal/metrics"
	"respirapt-backend/internal/supabase"
	"respirapt-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	AuthUC       domain.AuthUsecase
	OnboardingUC domain.OnboardingUsecase
	TaskUC       domain.TaskUsecase
	ProgressUC   domain.ProgressUsecase
	BillingUC    domain.BillingUsecase
	Supabase     *supabase.Client
	JWKSProvider *auth.Provider
	Config       *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	window := time.Duration(deps.Config.RateLimitWindowSeconds) * time.Second

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.FrontendURL)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(metrics.Middleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimitMiddleware(
		middleware.GlobalRateLimitConfig(deps.Config.RateLimitGlobalThreshold, window)))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "System operational", nil)
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Credential endpoints get the strict limit on top of the global one.
	loginLimited := v1.Group("")
	loginLimited.Use(middleware.RateLimitMiddleware(
		middleware.LoginRateLimitConfig(deps.Config.RateLimitLoginThreshold, window)))

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.JWKSProvider, deps.Config))
	{
		NewAuthHandler(loginLimited, protected, deps.AuthUC, deps.Supabase, deps.Config)
		NewOnboardingHandler(protected, deps.OnboardingUC)
		NewTaskHandler(protected, deps.TaskUC)
		NewProgressHandler(protected, deps.ProgressUC)
		NewBillingHandler(v1, protected, deps.BillingUC, deps.Config)
	}

	return r
}
