package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/pkg/database"
	"github.com/labelflow/labelflow/api/internal/repository/postgres"
	"github.com/labelflow/labelflow/api/internal/repository/sqlite"
	"github.com/labelflow/labelflow/api/internal/service"
)

// Store is an opened store and the repositories on top of it
type Store struct {
	Driver       string
	Repositories service.Repositories

	ping  func(ctx context.Context) error
	close func()
}

// Open connects to the configured store, migrating it first when enabled
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.StoreDriverSQLite:
		return openSQLite(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if cfg.Store.AutoMigrate {
		if err := database.MigratePostgres(ctx, cfg.Postgres); err != nil {
			return nil, err
		}
	}

	db, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	logger.Info("using PostgreSQL store",
		zap.String("host", cfg.Postgres.Host),
		zap.String("database", cfg.Postgres.Database),
	)

	return &Store{
		Driver: config.StoreDriverPostgres,
		Repositories: service.Repositories{
			Datasets:  postgres.NewDatasetRepository(db),
			Tasks:     postgres.NewTaskRepository(db),
			TaskItems: postgres.NewTaskItemRepository(db),
		},
		ping:  db.Ping,
		close: db.Close,
	}, nil
}

func openSQLite(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	var models []any
	if cfg.Store.AutoMigrate {
		models = sqlite.Models()
	}

	db, err := database.NewSQLite(cfg.SQLite, models...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}

	logger.Info("using SQLite store", zap.String("dsn", cfg.SQLite.DSN))

	return &Store{
		Driver: config.StoreDriverSQLite,
		Repositories: service.Repositories{
			Datasets:  sqlite.NewDatasetRepository(db),
			Tasks:     sqlite.NewTaskRepository(db),
			TaskItems: sqlite.NewTaskItemRepository(db),
		},
		ping: sqlDB.PingContext,
		close: func() {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("failed to close sqlite", zap.Error(err))
			}
		},
	}, nil
}

// Ping checks the store connection
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the store connection
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}
