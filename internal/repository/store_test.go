package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/domain"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.Config{
		Store:  config.StoreConfig{Driver: config.StoreDriverSQLite, AutoMigrate: true},
		SQLite: config.SQLiteConfig{DSN: ":memory:"},
	}

	store, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, config.StoreDriverSQLite, store.Driver)
	require.NoError(t, store.Ping(context.Background()))

	now := time.Now().UTC()
	ds := &domain.Dataset{ID: uuid.New(), Name: "smoke", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Repositories.Datasets.Create(context.Background(), ds))

	got, err := store.Repositories.Datasets.GetByID(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "smoke", got.Name)
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "mongo"}}

	_, err := Open(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
