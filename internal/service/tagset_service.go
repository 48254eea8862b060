package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
	"github.com/labelflow/labelflow/api/internal/pkg/metrics"
)

// MachineJobPublisher hands a task to the external machine labeler
type MachineJobPublisher interface {
	PublishMachineRequested(ctx context.Context, taskID uuid.UUID) error
}

// RetryConfig bounds the optimistic write loop
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// TagSetService owns a task's tag vocabulary and relation-tag vocabulary
type TagSetService struct {
	tasks     TaskRepository
	datasets  DatasetRepository
	publisher MachineJobPublisher
	retry     RetryConfig
	logger    *zap.Logger
}

// NewTagSetService creates a new tag set service. publisher may be nil when
// no machine labeler is wired.
func NewTagSetService(
	logger *zap.Logger,
	repos Repositories,
	publisher MachineJobPublisher,
	retry RetryConfig,
) *TagSetService {
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 10 * time.Millisecond
	}
	return &TagSetService{
		tasks:     repos.Tasks,
		datasets:  repos.Datasets,
		publisher: publisher,
		retry:     retry,
		logger:    logger.Named("tagset"),
	}
}

// GetTask returns a task with its dataset
func (s *TagSetService) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	dataset, err := s.datasets.GetByID(ctx, task.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	task.Dataset = dataset

	return task, nil
}

// AddTag appends a tag to the task's vocabulary
func (s *TagSetService) AddTag(ctx context.Context, taskID uuid.UUID, input *domain.TagInput) (*domain.Task, error) {
	return s.mutate(ctx, taskID, func(task *domain.Task) (bool, error) {
		tags, err := task.Tags.Add(domain.TagDef{Name: input.Name, Symbol: input.Symbol, Color: input.Color})
		if err != nil {
			return false, err
		}
		task.Tags = tags
		return true, nil
	})
}

// ModifyTag renames and recolors a tag
func (s *TagSetService) ModifyTag(ctx context.Context, taskID uuid.UUID, symbol string, input *domain.TagUpdateInput) (*domain.Task, error) {
	return s.mutate(ctx, taskID, func(task *domain.Task) (bool, error) {
		tags, err := task.Tags.Modify(symbol, input.Name, input.Color)
		if err != nil {
			return false, err
		}
		task.Tags = tags
		return true, nil
	})
}

// DeleteTag removes a tag. Deleting an absent symbol succeeds without a write.
// Task items that already use the symbol keep it.
func (s *TagSetService) DeleteTag(ctx context.Context, taskID uuid.UUID, symbol string) (*domain.Task, error) {
	return s.mutate(ctx, taskID, func(task *domain.Task) (bool, error) {
		tags, changed, err := task.Tags.Remove(symbol)
		if err != nil {
			return false, err
		}
		task.Tags = tags
		return changed, nil
	})
}

// ReorderTags replaces the tag order with a permutation of the current symbols
func (s *TagSetService) ReorderTags(ctx context.Context, taskID uuid.UUID, symbols []string) (*domain.Task, error) {
	return s.mutate(ctx, taskID, func(task *domain.Task) (bool, error) {
		tags, changed, err := task.Tags.Reorder(symbols)
		if err != nil {
			return false, err
		}
		task.Tags = tags
		return changed, nil
	})
}

// SetRelationTags replaces the relation tags wholesale
func (s *TagSetService) SetRelationTags(ctx context.Context, taskID uuid.UUID, names []string) (*domain.Task, error) {
	if names == nil {
		names = []string{}
	}
	return s.mutate(ctx, taskID, func(task *domain.Task) (bool, error) {
		task.RelationTags = append([]string(nil), names...)
		return true, nil
	})
}

// SetMachineRunning flags the task for the machine labeler and publishes a job.
// A publish failure is logged, the flag stays set.
func (s *TagSetService) SetMachineRunning(ctx context.Context, taskID uuid.UUID) error {
	if err := s.tasks.UpdateMachineState(ctx, taskID, true, domain.MachineStatusWaiting); err != nil {
		return err
	}

	if s.publisher == nil {
		s.logger.Warn("no machine job publisher configured", zap.String("task_id", taskID.String()))
		return nil
	}
	if err := s.publisher.PublishMachineRequested(ctx, taskID); err != nil {
		s.logger.Error("failed to publish machine job",
			zap.String("task_id", taskID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// mutate runs read, transform and compare-and-swap write, retrying the whole
// cycle when another writer bumped the version in between
func (s *TagSetService) mutate(ctx context.Context, taskID uuid.UUID, fn func(task *domain.Task) (bool, error)) (*domain.Task, error) {
	var result *domain.Task

	op := func() error {
		task, err := s.tasks.GetByID(ctx, taskID)
		if err != nil {
			return backoff.Permanent(err)
		}

		changed, err := fn(task)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !changed {
			result = task
			return nil
		}

		if err := s.tasks.UpdateTagSet(ctx, task); err != nil {
			if apperrors.IsConflict(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = task
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retry.InitialInterval
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		metrics.RecordTagSetRetry()
		s.logger.Debug("tag set write lost a race, retrying",
			zap.String("task_id", taskID.String()),
			zap.Duration("wait", wait),
		)
	}

	err := backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(policy, s.retry.MaxRetries), ctx),
		notify,
	)
	if err != nil {
		if apperrors.IsConflict(err) {
			return nil, apperrors.Conflict("task was modified concurrently, please retry").WithError(err)
		}
		return nil, err
	}

	return result, nil
}
