package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ohs/ohs/internal/config"
	"github.com/ohs/ohs/internal/domain/catalog"
	"github.com/ohs/ohs/internal/domain/periodicity"
	"github.com/ohs/ohs/internal/domain/riskmatrix"
	"github.com/ohs/ohs/internal/domain/workforce"
	"github.com/ohs/ohs/internal/platform/auth"
	"github.com/ohs/ohs/internal/platform/db"
	"github.com/ohs/ohs/internal/platform/metrics"
	"github.com/ohs/ohs/internal/platform/middleware"
)

const version = "0.1.0"

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// services holds the wired domain layer.
type services struct {
	catalog     *catalog.Service
	riskMatrix  *riskmatrix.Service
	periodicity *periodicity.Service
}

func buildServices(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *services {
	catalogSvc := catalog.NewService(catalog.NewHazardRepoPG(pool), catalog.NewEntryRepoPG(pool))

	positions := workforce.NewPositionRepoPG(pool)
	workers := workforce.NewWorkerRepoPG(pool)
	absences := workforce.NewAbsenceRepoPG(pool)
	exams := workforce.NewExamRepoPG(pool)

	matrices := riskmatrix.NewRepoPG(pool)

	agg := periodicity.NewAggregator(workers, absences, exams, matrices, catalogSvc, cfg.TopHazards, logger)
	periodicitySvc := periodicity.NewService(agg, positions, cfg.IndicatorWindowMonths, logger)

	riskMatrixSvc := riskmatrix.NewService(matrices, db.NewTxManager(pool), catalogSvc, positions, workers, periodicitySvc, logger)

	return &services{
		catalog:     catalogSvc,
		riskMatrix:  riskMatrixSvc,
		periodicity: periodicitySvc,
	}
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

// newEcho builds the HTTP surface. pinger backs /health/db.
func newEcho(cfg *config.Config, svcs *services, pinger db.Pinger, stats func() *db.PoolStats, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	if cfg.MetricsEnabled {
		e.Use(metrics.Middleware())
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pinger, stats))
	if cfg.MetricsEnabled {
		e.GET("/metrics", metrics.Handler())
	}

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))

	catalog.NewHandler(svcs.catalog).RegisterRoutes(apiV1)
	riskmatrix.NewHandler(svcs.riskMatrix).RegisterRoutes(apiV1)
	periodicity.NewHandler(svcs.periodicity).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	svcs := buildServices(cfg, pool, logger)
	e := newEcho(cfg, svcs, pool, func() *db.PoolStats { return db.GetPoolStats(pool) }, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
