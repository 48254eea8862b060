package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	_ = logger.Init(logger.Config{
		Level:  "error", // Only show errors in tests to reduce noise
		Format: "console",
	})
	os.Exit(m.Run())
}

func TestTruncateSQL(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		maxLen   int
		expected string
	}{
		{
			name:     "short SQL unchanged",
			sql:      "SELECT * FROM tasks",
			maxLen:   100,
			expected: "SELECT * FROM tasks",
		},
		{
			name:     "exactly at max length",
			sql:      "SELECT * FROM tasks",
			maxLen:   19,
			expected: "SELECT * FROM tasks",
		},
		{
			name:     "truncated with ellipsis",
			sql:      "SELECT * FROM tasks WHERE id = 1",
			maxLen:   20,
			expected: "SELECT * FROM tasks ...",
		},
		{
			name:     "empty string",
			sql:      "",
			maxLen:   10,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncateSQL(tt.sql, tt.maxLen))
		})
	}
}

func TestQueryOperation(t *testing.T) {
	tests := []struct {
		sql      string
		expected string
	}{
		{"SELECT 1", "select"},
		{"  insert INTO task_items VALUES ($1)", "insert"},
		{"UPDATE tasks SET version = version + 1", "update"},
		{"DELETE FROM tasks", "delete"},
		{"WITH c AS (SELECT 1) SELECT * FROM c", "with"},
		{"BEGIN", "other"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.expected, queryOperation(tt.sql))
		})
	}
}

func TestQueryTracer(t *testing.T) {
	tracer := &queryTracer{}

	t.Run("stores start time and SQL in context", func(t *testing.T) {
		ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})

		start, ok := ctx.Value(queryStartKey{}).(time.Time)
		assert.True(t, ok)
		assert.False(t, start.IsZero())

		sql, ok := ctx.Value(querySQLKey{}).(string)
		assert.True(t, ok)
		assert.Equal(t, "SELECT 1", sql)
	})

	t.Run("query end tolerates missing start", func(t *testing.T) {
		assert.NotPanics(t, func() {
			tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
		})
	})

	t.Run("query end records failures", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), queryStartKey{}, time.Now().Add(-200*time.Millisecond))
		ctx = context.WithValue(ctx, querySQLKey{}, "SELECT 1")
		assert.NotPanics(t, func() {
			tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{
				Err:        errors.New("connection refused"),
				CommandTag: pgconn.CommandTag{},
			})
		})
	})
}

func TestPostgresDBClose(t *testing.T) {
	t.Run("handles nil pool", func(t *testing.T) {
		db := &PostgresDB{Pool: nil}
		// Should not panic
		db.Close()
	})
}

func TestPingWithBackoff(t *testing.T) {
	t.Run("retries until ping succeeds", func(t *testing.T) {
		attempts := 0
		err := pingWithBackoff(context.Background(), func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("not ready")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := pingWithBackoff(ctx, func(context.Context) error {
			return errors.New("not ready")
		})
		assert.Error(t, err)
	})
}

func TestNewSQLite(t *testing.T) {
	type widget struct {
		ID   uint `gorm:"primaryKey"`
		Name string
	}

	db, err := NewSQLite(config.SQLiteConfig{DSN: ":memory:"}, &widget{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&widget{Name: "a"}).Error)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, sqlDB.Close())
}
