package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/domain"
	"github.com/labelflow/labelflow/api/internal/pkg/database"
)

// getTestDB returns a migrated database connection for integration tests.
// Skips the test if the database is not available.
func getTestDB(t *testing.T) *database.PostgresDB {
	if os.Getenv("POSTGRES_TEST_HOST") == "" {
		t.Skip("Skipping integration test: POSTGRES_TEST_HOST not set")
		return nil
	}

	cfg := config.PostgresConfig{
		Host:     os.Getenv("POSTGRES_TEST_HOST"),
		Port:     5432,
		User:     os.Getenv("POSTGRES_TEST_USER"),
		Password: os.Getenv("POSTGRES_TEST_PASS"),
		Database: os.Getenv("POSTGRES_TEST_DB"),
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}

	if cfg.Database == "" {
		cfg.Database = "test_labelflow"
	}
	if cfg.User == "" {
		cfg.User = "postgres"
	}

	ctx := context.Background()
	if err := database.MigratePostgres(ctx, cfg); err != nil {
		t.Skipf("Skipping integration test: failed to migrate PostgreSQL: %v", err)
		return nil
	}

	db, err := database.NewPostgres(ctx, cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to PostgreSQL: %v", err)
		return nil
	}
	t.Cleanup(db.Close)

	return db
}

// seedTask creates a dataset with the given contents and a task over it,
// removing both when the test ends
func seedTask(t *testing.T, db *database.PostgresDB, contents ...string) (*domain.Task, []domain.DatasetItem) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	ds := &domain.Dataset{ID: uuid.New(), Name: "it-" + uuid.NewString()[:8], CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewDatasetRepository(db).Create(ctx, ds))

	items := make([]domain.DatasetItem, len(contents))
	for i, c := range contents {
		items[i] = domain.DatasetItem{ID: uuid.New(), DatasetID: ds.ID, Content: c, CreatedAt: now}
	}
	require.NoError(t, NewDatasetRepository(db).CreateItems(ctx, items))

	task := &domain.Task{
		ID:        uuid.New(),
		DatasetID: ds.ID,
		Name:      "ner",
		Tags:      domain.TagSet{{Name: "Person", Symbol: "PER", Color: "#ff0000"}},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, NewTaskRepository(db).Create(ctx, task))

	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), "DELETE FROM tasks WHERE id = $1", task.ID)
		_, _ = db.Pool.Exec(context.Background(), "DELETE FROM datasets WHERE id = $1", ds.ID)
	})

	return task, items
}
