package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/pkg/circuitbreaker"
	"github.com/labelflow/labelflow/api/internal/pkg/logger"
	"github.com/labelflow/labelflow/api/internal/pkg/metrics"
	"github.com/labelflow/labelflow/api/internal/repository"
	"github.com/labelflow/labelflow/api/internal/service"
	"github.com/labelflow/labelflow/api/internal/worker"
)

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
	log := logger.Log.Named("worker")

	log.Info("starting worker service")

	deps, cleanup, err := initWorkerDependencies(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer cleanup()

	workerServer, err := worker.NewServer(log, cfg, deps)
	if err != nil {
		log.Fatal("failed to create worker server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- workerServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down worker...")
		workerServer.Stop()
	case err := <-errCh:
		if err != nil {
			log.Error("worker server error", zap.Error(err))
		}
	}

	log.Info("worker stopped")
}

// initWorkerDependencies opens the store and builds the suggestion service
// behind the same guard the API server uses
func initWorkerDependencies(cfg *config.Config, log *zap.Logger) (*worker.WorkerDependencies, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	breakerCfg := circuitbreaker.GuardConfig("worker-store", cfg.Store.BreakerMaxFailures, cfg.Store.BreakerCooldown)
	breakerCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		metrics.SetBreakerState(name, int(to))
	}
	guard := circuitbreaker.NewGuard(circuitbreaker.NewRegistry().Get("worker-store", breakerCfg), cfg.Store.OpTimeout)

	repos := store.Repositories.Guarded(guard)

	deps := &worker.WorkerDependencies{
		SuggestionService: service.NewSuggestionService(log, repos),
	}

	return deps, store.Close, nil
}
