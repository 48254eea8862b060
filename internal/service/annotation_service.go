package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
	"github.com/labelflow/labelflow/api/internal/pkg/metrics"
	"github.com/labelflow/labelflow/api/internal/tagseq"
)

// AnnotationService validates and stores human labelings
type AnnotationService struct {
	tasks    TaskRepository
	datasets DatasetRepository
	items    TaskItemRepository
	now      func() time.Time
	logger   *zap.Logger
}

// NewAnnotationService creates a new annotation service
func NewAnnotationService(logger *zap.Logger, repos Repositories) *AnnotationService {
	return &AnnotationService{
		tasks:    repos.Tasks,
		datasets: repos.Datasets,
		items:    repos.TaskItems,
		now:      time.Now,
		logger:   logger.Named("annotation"),
	}
}

// Submit stores a human labeling of one dataset item
func (s *AnnotationService) Submit(ctx context.Context, taskID, datasetItemID uuid.UUID, spans []domain.Span, relationTags []string) error {
	task, item, err := s.resolve(ctx, taskID, datasetItemID)
	if err != nil {
		return err
	}

	valid, err := tagseq.Validate(task.Tags, item.ContentLength(), spans, relationTags)
	if err != nil {
		metrics.RecordAnnotation("rejected")
		return err
	}

	return s.store(ctx, task, item, valid, nonNil(relationTags))
}

// SubmitJSON stores a human labeling exactly as it arrived on the wire, so
// extra span fields and non-integer lengths are rejected rather than dropped
func (s *AnnotationService) SubmitJSON(ctx context.Context, taskID, datasetItemID uuid.UUID, input *domain.SubmissionInput) error {
	task, item, err := s.resolve(ctx, taskID, datasetItemID)
	if err != nil {
		return err
	}

	spans, relationTags, err := tagseq.ValidateJSON(task.Tags, item.ContentLength(), input.Tags, input.RelationTags)
	if err != nil {
		metrics.RecordAnnotation("rejected")
		return err
	}

	return s.store(ctx, task, item, spans, relationTags)
}

func (s *AnnotationService) resolve(ctx context.Context, taskID, datasetItemID uuid.UUID) (*domain.Task, *domain.DatasetItem, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	item, err := s.datasets.GetItemByID(ctx, datasetItemID)
	if err != nil {
		return nil, nil, err
	}

	if item.DatasetID != task.DatasetID {
		return nil, nil, apperrors.CrossDatasetMismatch("dataset item does not belong to the task's dataset").
			WithDetail("task_dataset_id", task.DatasetID.String()).
			WithDetail("item_dataset_id", item.DatasetID.String())
	}

	return task, item, nil
}

func (s *AnnotationService) store(ctx context.Context, task *domain.Task, item *domain.DatasetItem, spans []domain.Span, relationTags []string) error {
	now := s.now().UTC()
	record := &domain.TaskItem{
		TaskID:        task.ID,
		DatasetItemID: item.ID,
		Tags:          spans,
		RelationTags:  relationTags,
		Confidence:    domain.HumanConfidence,
		ByHuman:       true,
		LeasedUntil:   nil,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.items.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to store annotation: %w", err)
	}

	metrics.RecordAnnotation("accepted")
	s.logger.Debug("annotation stored",
		zap.String("task_id", task.ID.String()),
		zap.String("dataset_item_id", item.ID.String()),
		zap.Int("spans", len(spans)),
	)
	return nil
}
