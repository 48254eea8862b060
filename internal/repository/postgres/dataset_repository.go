package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/labelflow/labelflow/api/internal/domain"
	"github.com/labelflow/labelflow/api/internal/pkg/database"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// DatasetRepository handles dataset data operations in PostgreSQL
type DatasetRepository struct {
	db *database.PostgresDB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *database.PostgresDB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Create creates a new dataset
func (r *DatasetRepository) Create(ctx context.Context, dataset *domain.Dataset) error {
	query := `
		INSERT INTO datasets (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		dataset.ID,
		dataset.Name,
		dataset.Description,
		dataset.CreatedAt,
		dataset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	return nil
}

// GetByID retrieves a dataset by ID
func (r *DatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM datasets
		WHERE id = $1
	`

	var dataset domain.Dataset
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&dataset.ID,
		&dataset.Name,
		&dataset.Description,
		&dataset.CreatedAt,
		&dataset.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("dataset")
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	return &dataset, nil
}

// CountItems returns the number of items in a dataset
func (r *DatasetRepository) CountItems(ctx context.Context, datasetID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM dataset_items WHERE dataset_id = $1`

	var count int64
	err := r.db.Pool.QueryRow(ctx, query, datasetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}

	return count, nil
}

// CreateItems inserts items with COPY inside one transaction
func (r *DatasetRepository) CreateItems(ctx context.Context, items []domain.DatasetItem) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([][]any, len(items))
	for i, item := range items {
		rows[i] = []any{item.ID, item.DatasetID, item.Content, item.CreatedAt}
	}

	err := database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"dataset_items"},
			[]string{"id", "dataset_id", "content", "created_at"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create dataset items: %w", err)
	}

	return nil
}

// GetItemByID retrieves a dataset item by ID
func (r *DatasetRepository) GetItemByID(ctx context.Context, id uuid.UUID) (*domain.DatasetItem, error) {
	query := `
		SELECT id, dataset_id, content, created_at
		FROM dataset_items
		WHERE id = $1
	`

	var item domain.DatasetItem
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.DatasetID,
		&item.Content,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("dataset item")
		}
		return nil, fmt.Errorf("failed to get dataset item: %w", err)
	}

	return &item, nil
}

// ListItems retrieves dataset items in id order
func (r *DatasetRepository) ListItems(ctx context.Context, datasetID uuid.UUID, limit, offset int) ([]domain.DatasetItem, int64, error) {
	var totalCount int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM dataset_items WHERE dataset_id = $1`, datasetID).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	query := `
		SELECT id, dataset_id, content, created_at
		FROM dataset_items
		WHERE dataset_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, datasetID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}

	items, err := scanDatasetItems(rows)
	if err != nil {
		return nil, 0, err
	}

	return items, totalCount, nil
}

func scanDatasetItems(rows pgx.Rows) ([]domain.DatasetItem, error) {
	defer rows.Close()

	items := []domain.DatasetItem{}
	for rows.Next() {
		var item domain.DatasetItem
		if err := rows.Scan(
			&item.ID,
			&item.DatasetID,
			&item.Content,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}

	return items, nil
}
