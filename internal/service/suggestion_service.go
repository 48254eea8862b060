package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
	"github.com/labelflow/labelflow/api/internal/pkg/metrics"
	"github.com/labelflow/labelflow/api/internal/tagseq"
)

// SuggestionService stores machine labelings. It never overwrites human work.
type SuggestionService struct {
	tasks    TaskRepository
	datasets DatasetRepository
	items    TaskItemRepository
	now      func() time.Time
	logger   *zap.Logger
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(logger *zap.Logger, repos Repositories) *SuggestionService {
	return &SuggestionService{
		tasks:    repos.Tasks,
		datasets: repos.Datasets,
		items:    repos.TaskItems,
		now:      time.Now,
		logger:   logger.Named("suggestion"),
	}
}

// Ingest applies a batch of machine suggestions. Suggestions that fail
// validation or point outside the task's dataset are counted as invalid and
// skipped; store failures abort the batch so it can be redelivered.
func (s *SuggestionService) Ingest(ctx context.Context, batch *domain.SuggestionBatch) (*domain.SuggestionResult, error) {
	task, err := s.tasks.GetByID(ctx, batch.TaskID)
	if err != nil {
		return nil, err
	}

	result := &domain.SuggestionResult{}
	for i := range batch.Suggestions {
		sg := &batch.Suggestions[i]

		record, err := s.prepare(ctx, task, sg)
		if err != nil {
			if !isRejection(err) {
				return nil, err
			}
			result.Invalid++
			metrics.RecordSuggestion("invalid")
			s.logger.Debug("skipping invalid suggestion",
				zap.String("task_id", task.ID.String()),
				zap.String("dataset_item_id", sg.DatasetItemID.String()),
				zap.Error(err),
			)
			continue
		}

		written, err := s.items.UpsertSuggestion(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("failed to store suggestion: %w", err)
		}
		if written {
			result.Applied++
			metrics.RecordSuggestion("applied")
		} else {
			result.Skipped++
			metrics.RecordSuggestion("skipped")
		}
	}

	prefix := "machine labeling in progress"
	if batch.Final {
		prefix = "machine labeling finished"
	}
	status := fmt.Sprintf("%s: %d applied, %d skipped, %d invalid",
		prefix, result.Applied, result.Skipped, result.Invalid)
	if err := s.tasks.UpdateMachineState(ctx, task.ID, !batch.Final, status); err != nil {
		return nil, fmt.Errorf("failed to update machine status: %w", err)
	}

	s.logger.Info("ingested machine suggestions",
		zap.String("task_id", task.ID.String()),
		zap.Int("applied", result.Applied),
		zap.Int("skipped", result.Skipped),
		zap.Int("invalid", result.Invalid),
		zap.Bool("final", batch.Final),
	)

	return result, nil
}

func (s *SuggestionService) prepare(ctx context.Context, task *domain.Task, sg *domain.MachineSuggestion) (*domain.TaskItem, error) {
	if sg.Confidence < 0 || sg.Confidence > 1 {
		return nil, apperrors.InvalidArgument("confidence must be between 0 and 1")
	}

	item, err := s.datasets.GetItemByID(ctx, sg.DatasetItemID)
	if err != nil {
		return nil, err
	}
	if item.DatasetID != task.DatasetID {
		return nil, apperrors.CrossDatasetMismatch("dataset item does not belong to the task's dataset")
	}

	spans, err := tagseq.Validate(task.Tags, item.ContentLength(), sg.Tags, sg.RelationTags)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return &domain.TaskItem{
		TaskID:        task.ID,
		DatasetItemID: item.ID,
		Tags:          spans,
		RelationTags:  nonNil(sg.RelationTags),
		Confidence:    sg.Confidence,
		ByHuman:       false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// isRejection reports whether err condemns a single suggestion rather than the batch
func isRejection(err error) bool {
	return apperrors.IsNotFound(err) ||
		apperrors.IsInvalidArgument(err) ||
		apperrors.IsValidation(err) ||
		apperrors.IsCrossDatasetMismatch(err)
}
