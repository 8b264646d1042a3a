package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-jobportal-web/config"
	"go-jobportal-web/internal/delivery/http/middleware"
	"go-jobportal-web/internal/delivery/http/web"
	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/identity"
	"go-jobportal-web/internal/repository/jobapi"
	redisrepo "go-jobportal-web/internal/repository/redis"
	"go-jobportal-web/internal/session"
	"go-jobportal-web/internal/usecase"
	"go-jobportal-web/pkg/auth"
	"go-jobportal-web/pkg/logger"
	pkgredis "go-jobportal-web/pkg/redis"
	"go-jobportal-web/pkg/security"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	defer func() { _ = logger.Log.Sync() }()
	logger.Log.Info("Starting job portal web", "port", cfg.Port)

	// 3. Setup Redis (optional)
	var redisClient *goredis.Client
	redisClient, err = pkgredis.Connect(context.Background(), pkgredis.Config{
		URL:      cfg.UpstashRedisURL,
		Password: cfg.UpstashRedisPassword,
	})
	switch {
	case errors.Is(err, pkgredis.ErrNotConfigured):
		logger.Log.Warn("Redis not configured, using in-memory sessions and rate limits")
	case err != nil:
		logger.Log.Error("Failed to connect to Redis, using in-memory fallback", "error", err)
		redisClient = nil
	default:
		defer func() { _ = redisClient.Close() }()
	}

	var sessionRepo domain.SessionRepository
	if redisClient != nil {
		sessionRepo = redisrepo.NewSessionRepository(redisClient, cfg.SessionTTL)
	} else {
		sessionRepo = redisrepo.NewMemorySessionRepository(cfg.SessionTTL)
	}

	// 4. Setup Identity Provider
	jwksProvider := auth.NewProvider(cfg.SupabaseUrl+"/auth/v1/.well-known/jwks.json", nil)
	provider := identity.NewSupabase(identity.SupabaseConfig{
		URL:         cfg.SupabaseUrl,
		APIKey:      cfg.SupabaseKey,
		RedirectURL: cfg.PublicURL + "/auth/callback",
	}, auth.NewVerifier(cfg.SupabaseJWTSecret, jwksProvider), logger.Log)

	store := session.New(provider, sessionRepo, logger.Log, cfg.SessionSettleTimeout)
	defer store.Close()

	// 5. Setup Repositories
	jobsClient, err := jobapi.NewClient(jobapi.Config{
		BaseURL:      cfg.JobsAPIURL,
		Timeout:      cfg.JobsAPITimeout,
		ForwardToken: cfg.JobsAPIForwardToken,
	})
	if err != nil {
		logger.Log.Error("Invalid jobs API configuration", "error", err)
		os.Exit(1)
	}
	jobRepo := jobapi.NewJobRepository(jobsClient)
	applicationRepo := jobapi.NewApplicationRepository(jobsClient)

	// 6. Setup UseCases
	tracker := security.NewLoginTracker(security.LoginTrackerConfig{
		MaxAttempts:   cfg.FailedLoginMaxAttempts,
		AttemptWindow: time.Duration(cfg.FailedLoginBlockMinutes) * time.Minute,
		BlockDuration: time.Duration(cfg.FailedLoginBlockMinutes) * time.Minute,
		UseIPTracking: true,
	}, redisClient, logger.Log)

	authUC := usecase.NewAuthUsecase(store, tracker, logger.Log)
	jobUC := usecase.NewJobUsecase(jobRepo)
	applicationUC := usecase.NewApplicationUsecase(applicationRepo, jobRepo)

	checks := map[string]usecase.HealthCheck{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return pkgredis.HealthCheck(ctx, redisClient) }
	}
	healthUC := usecase.NewHealthUsecase(checks)

	// 7. Setup Rate Limiting
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
	limiter := middleware.NewRateLimiter(redisClient, logger.Log)
	limiter.StartCleanup(rootCtx, 10*time.Minute)

	// 8. Setup Router
	router := web.NewRouter(web.Deps{
		Store:        store,
		Auth:         authUC,
		Jobs:         jobUC,
		Applications: applicationUC,
		Health:       healthUC,
		Validate:     usecase.NewValidator(),
		Log:          logger.Log,
		RateLimiter:  limiter,
		Options: web.Options{
			Cookie: middleware.CookieConfig{
				Name:   cfg.SessionCookieName,
				Secret: cfg.SessionSecret,
				Secure: cfg.SessionCookieSecure,
				MaxAge: cfg.SessionTTL,
			},
			SettleTimeout:   cfg.SessionSettleTimeout,
			RateLimitWindow: window,
			GlobalLimit:     cfg.RateLimitGlobalThreshold,
			AuthLimit:       cfg.RateLimitLoginThreshold,
			HSTS:            cfg.SessionCookieSecure,
		},
	})

	// 9. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
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
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
