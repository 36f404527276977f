package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/smartbrain-service/config"
	"github.com/duynhne/smartbrain-service/internal/core"
	"github.com/duynhne/smartbrain-service/internal/core/clarifai"
	"github.com/duynhne/smartbrain-service/internal/core/repository"
	logicv1 "github.com/duynhne/smartbrain-service/internal/logic/v1"
	webv1 "github.com/duynhne/smartbrain-service/internal/web/v1"
	"github.com/duynhne/smartbrain-service/middleware"
	"github.com/duynhne/smartbrain-service/pkg/logger/zerolog"
)

func main() {
	// Load configuration
	cfg := config.Load()
	zerolog.Setup(cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration validation failed")
	}

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("port", cfg.Service.Port).
		Msg("Service starting")

	// Initialize OpenTelemetry tracing
	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		provider, err := middleware.InitTracing(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			tp = provider
			log.Info().
				Str("endpoint", cfg.Tracing.Endpoint).
				Float64("sample_rate", cfg.Tracing.SampleRate).
				Msg("Tracing initialized")
		}
	} else {
		log.Info().Msg("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize profiling")
		} else {
			log.Info().
				Str("endpoint", cfg.Profiling.Endpoint).
				Msg("Profiling initialized")
			defer middleware.StopProfiling()
		}
	} else {
		log.Info().Msg("Profiling disabled (PROFILING_ENABLED=false)")
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// Initialize database connection pool (pgx)
	pool, err := core.Connect(startupCtx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Database connection pool established")

	if cfg.Database.AutoMigrate {
		if err := core.Migrate(startupCtx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Database migrations applied")
	}

	// Initialize session store (Redis)
	rdb, err := core.NewRedis(startupCtx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Str("addr", rdb.Options().Addr).Msg("Redis connected")

	if cfg.Clarifai.PAT == "" {
		log.Warn().Msg("CLARIFAI_PAT not set; /imageurl will fail until it is configured")
	}

	// Wire repositories -> services -> handlers
	users := repository.NewUserRepository(pool)
	sessions := repository.NewSessionRepository(rdb, cfg.Redis.KeyPrefix, cfg.Redis.SessionTTL)

	authService, err := logicv1.NewAuthService(users, sessions,
		logicv1.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		logicv1.Options{BcryptCost: cfg.Auth.BcryptCost, StoreTimeout: cfg.Auth.StoreTimeout},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth service")
	}
	profileService := logicv1.NewProfileService(users, cfg.Auth.StoreTimeout)
	imageService := logicv1.NewImageService(clarifai.NewClient(cfg.Clarifai))

	handler := webv1.NewHandler(authService, profileService, imageService)

	if cfg.Service.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	var isShuttingDown atomic.Bool

	r.Use(middleware.TracingMiddleware(cfg.Service.Name))
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(middleware.BodyLimitMiddleware(cfg.HTTP.BodyLimitBytes))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness check
	// Returns 503 once shutdown has started or when a backing store is unreachable.
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Auth.StoreTimeout)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database_unavailable"})
			return
		}
		if err := sessions.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "session_store_unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Service.Port).Msg("Starting smartbrain service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	// Fail readiness first so load balancers stop routing before the listener closes.
	isShuttingDown.Store(true)
	if drainDelay := cfg.GetReadinessDrainDelayDuration(); drainDelay > 0 {
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay started")
		time.Sleep(drainDelay)
	}

	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down server...")

	// 1. Shutdown HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		log.Info().Msg("HTTP server shutdown complete")
	}

	// 2. Close session store and database connections
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("Redis close error")
	}
	pool.Close()
	log.Info().Msg("Database pool closed")

	// 3. Shutdown tracer
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Tracer shutdown error")
		} else {
			log.Info().Msg("Tracer shutdown complete")
		}
	}

	log.Info().Msg("Graceful shutdown complete")
}
