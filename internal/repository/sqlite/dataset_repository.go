package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

const insertBatchSize = 200

// DatasetRepository handles dataset data operations in SQLite
type DatasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Create creates a new dataset
func (r *DatasetRepository) Create(ctx context.Context, dataset *domain.Dataset) error {
	if err := r.db.WithContext(ctx).Create(toDatasetModel(dataset)).Error; err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

// GetByID retrieves a dataset by ID
func (r *DatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	var m datasetModel
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("dataset")
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return m.toDomain()
}

// CountItems counts the items of a dataset
func (r *DatasetRepository) CountItems(ctx context.Context, datasetID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&datasetItemModel{}).
		Where("dataset_id = ?", datasetID.String()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count dataset items: %w", err)
	}
	return count, nil
}

// CreateItems inserts items in one transaction
func (r *DatasetRepository) CreateItems(ctx context.Context, items []domain.DatasetItem) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]datasetItemModel, len(items))
	for i, item := range items {
		models[i] = datasetItemModel{
			ID:        item.ID.String(),
			DatasetID: item.DatasetID.String(),
			Content:   item.Content,
			CreatedAt: item.CreatedAt,
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(models, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create dataset items: %w", err)
	}
	return nil
}

// GetItemByID retrieves a dataset item by ID
func (r *DatasetRepository) GetItemByID(ctx context.Context, id uuid.UUID) (*domain.DatasetItem, error) {
	var m datasetItemModel
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("dataset item")
		}
		return nil, fmt.Errorf("failed to get dataset item: %w", err)
	}
	item, err := m.toDomain()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems lists items of a dataset in id order
func (r *DatasetRepository) ListItems(ctx context.Context, datasetID uuid.UUID, limit, offset int) ([]domain.DatasetItem, int64, error) {
	q := r.db.WithContext(ctx).Model(&datasetItemModel{}).
		Where("dataset_id = ?", datasetID.String()).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count dataset items: %w", err)
	}

	var models []datasetItemModel
	if err := q.Order("id ASC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list dataset items: %w", err)
	}

	items, err := toDatasetItems(models)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func toDatasetItems(models []datasetItemModel) ([]domain.DatasetItem, error) {
	items := make([]domain.DatasetItem, 0, len(models))
	for i := range models {
		item, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
