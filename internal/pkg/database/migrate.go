package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver used by goose
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/pkg/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// connectTimeout bounds how long startup waits for the database to accept connections
const connectTimeout = 30 * time.Second

// MigratePostgres applies all pending schema migrations
func MigratePostgres(ctx context.Context, cfg config.PostgresConfig) error {
	db, err := goose.OpenDBWithDriver("pgx", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open a connection to the datastore: %w", err)
	}
	defer db.Close()

	if err := pingWithBackoff(ctx, db.PingContext); err != nil {
		return fmt.Errorf("failed to initialize database connection: %w", err)
	}

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration),
		)
	}

	return nil
}

func pingWithBackoff(ctx context.Context, ping func(context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectTimeout

	return backoff.Retry(func() error {
		return ping(ctx)
	}, backoff.WithContext(policy, ctx))
}
