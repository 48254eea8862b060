package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/pkg/database"
	"github.com/labelflow/labelflow/api/internal/repository"
	"github.com/labelflow/labelflow/api/internal/worker"
)

// Databases holds all connections
type Databases struct {
	Store       *repository.Store
	Redis       *database.RedisDB
	AsynqClient *asynq.Client
}

// needsRedis reports whether any enabled feature talks to Redis
func needsRedis(cfg *config.Config) bool {
	return cfg.Worker.Enabled || cfg.RateLimit.Enabled
}

// initDatabases opens the labeling store and, when needed, Redis and the queue client
func initDatabases(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Databases, error) {
	dbs := &Databases{}

	store, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	dbs.Store = store

	if !needsRedis(cfg) {
		logger.Info("redis not required, machine labeling and rate limiting disabled")
		return dbs, nil
	}

	redisDB, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		dbs.Close()
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	dbs.Redis = redisDB

	if cfg.Worker.Enabled {
		dbs.AsynqClient = asynq.NewClient(worker.RedisOpt(cfg.Redis))
	}

	return dbs, nil
}

// Close closes all connections
func (d *Databases) Close() {
	if d.AsynqClient != nil {
		_ = d.AsynqClient.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.Store != nil {
		d.Store.Close()
	}
}
