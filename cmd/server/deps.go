package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/pkg/circuitbreaker"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Databases *Databases
	Services  *Services
	Handlers  *Handlers
}

// initDependencies wires connections, repositories, services and handlers
func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	dbs, err := initDatabases(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	breakers := circuitbreaker.NewRegistry()
	repos := initRepositories(cfg, logger, dbs, breakers)
	svcs := initServices(cfg, logger, repos, dbs)

	return &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Databases: dbs,
		Services:  svcs,
		Handlers:  initHandlers(logger, dbs, svcs, breakers),
	}, nil
}

// Close releases all connections
func (d *Dependencies) Close() {
	d.Databases.Close()
}
