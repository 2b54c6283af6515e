package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"

	"github.com/farmconnect/contracts-api/internal/config"
	"github.com/farmconnect/contracts-api/internal/handlers"
	"github.com/farmconnect/contracts-api/internal/jobs"
	"github.com/farmconnect/contracts-api/internal/middleware"
	"github.com/farmconnect/contracts-api/internal/repository"
	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/farmconnect/contracts-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Farm Contracts API
// @version 1.0
// @description REST API for farm contracts, tenders, bids and the delivery and payment ledger

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry (GlitchTip) when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to the configured store and migrate it
	repos, backend, err := repository.Open(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, cfg, services.SystemClock())

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, limiter, cfg)

	// Initialize handlers and router
	h := handlers.NewHandlers(svcs)
	router := setupRouter(h, limiter, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Queued audit writes finish before the database closes
	worker.Shutdown()
	logger.Info("Background worker stopped")

	backend.Close(ctx)

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, limiter *middleware.RateLimiter, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(limiter.Middleware())

	h.Register(router.Group("/api/v1"), cfg.JWTSecret)
	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, limiter *middleware.RateLimiter, cfg *config.Config) {
	// Close tenders whose bidding window has passed
	svcs.Job.ScheduleTenderExpiry(cfg.TenderExpirySweep)

	// Forget idle rate limit buckets
	worker.ScheduleEvery(5*time.Minute, func(ctx context.Context) error {
		if n := limiter.Sweep(time.Now()); n > 0 {
			logger.Debug("[Job] Swept idle rate limiters", "count", n)
		}
		return nil
	})

	logger.Info("Scheduled recurring jobs")
}
