package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// DatasetService handles dataset operations
type DatasetService struct {
	datasets DatasetRepository
}

// NewDatasetService creates a new dataset service
func NewDatasetService(repos Repositories) *DatasetService {
	return &DatasetService{datasets: repos.Datasets}
}

// Create creates a new dataset
func (s *DatasetService) Create(ctx context.Context, input *domain.DatasetInput) (*domain.Dataset, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidArgument("dataset name is required")
	}

	now := time.Now().UTC()
	dataset := &domain.Dataset{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.datasets.Create(ctx, dataset); err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}

	return dataset, nil
}

// Get retrieves a dataset by ID
func (s *DatasetService) Get(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	dataset, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.datasets.CountItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	dataset.ItemCount = count

	return dataset, nil
}

// AddItems adds items to a dataset in one write. Empty content is rejected
// because it cannot be partitioned into positive-length spans.
func (s *DatasetService) AddItems(ctx context.Context, datasetID uuid.UUID, input *domain.DatasetItemsInput) ([]domain.DatasetItem, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidArgument("at least one item is required")
	}

	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	items := make([]domain.DatasetItem, len(input.Items))
	for i, in := range input.Items {
		if in.Content == "" {
			return nil, apperrors.InvalidArgument(fmt.Sprintf("item %d: content must not be empty", i))
		}
		items[i] = domain.DatasetItem{
			ID:        uuid.New(),
			DatasetID: datasetID,
			Content:   in.Content,
			CreatedAt: now,
		}
	}

	if err := s.datasets.CreateItems(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to create items: %w", err)
	}

	return items, nil
}

// ListItems lists items of a dataset
func (s *DatasetService) ListItems(ctx context.Context, datasetID uuid.UUID, limit, offset int) ([]domain.DatasetItem, int64, error) {
	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		return nil, 0, err
	}
	return s.datasets.ListItems(ctx, datasetID, limit, offset)
}
