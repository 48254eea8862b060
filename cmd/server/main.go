package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/handler"
	"github.com/labelflow/labelflow/api/internal/middleware"
	"github.com/labelflow/labelflow/api/internal/pkg/logger"
)

const appVersion = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Log.Named("server")

	if cfg.Sentry.Release == "" {
		cfg.Sentry.Release = "labelflow@" + appVersion
	}
	sentryEnabled := cfg.Sentry.Enabled
	if err := middleware.InitSentry(cfg.Sentry); err != nil {
		log.Error("failed to initialize Sentry", zap.Error(err))
		sentryEnabled = false
	} else if sentryEnabled {
		log.Info("Sentry initialized",
			zap.String("environment", cfg.Sentry.Environment),
			zap.String("release", cfg.Sentry.Release),
		)
		defer middleware.FlushSentry(5 * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	deps, err := initDependencies(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer deps.Close()

	app := fiber.New(fiber.Config{
		AppName:               "LabelFlow API",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: cfg.IsProduction(),
		ErrorHandler:          handler.ErrorHandler(log),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(middleware.DefaultLoggerConfig(log)))
	app.Use(middleware.Recover(log, sentryEnabled))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	}
	app.Use(middleware.CORS(corsConfig))
	app.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	registerRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("starting server",
			zap.String("addr", addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("version", appVersion),
		)
		if err := app.Listen(addr); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
}
