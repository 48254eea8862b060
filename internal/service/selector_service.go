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
)

const defaultScanBatchSize = 200

// SelectorConfig tunes next-item selection
type SelectorConfig struct {
	// LeaseDuration hides a presented item from other callers for this long; zero disables leasing
	LeaseDuration time.Duration
	ScanBatchSize int
}

// SelectorService decides which dataset item an annotator sees next
type SelectorService struct {
	tasks    TaskRepository
	datasets DatasetRepository
	items    TaskItemRepository
	cfg      SelectorConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewSelectorService creates a new selector service
func NewSelectorService(logger *zap.Logger, repos Repositories, cfg SelectorConfig) *SelectorService {
	if cfg.ScanBatchSize <= 0 {
		cfg.ScanBatchSize = defaultScanBatchSize
	}
	return &SelectorService{
		tasks:    repos.Tasks,
		datasets: repos.Datasets,
		items:    repos.TaskItems,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.Named("selector"),
	}
}

// Next returns the item an annotator should label next, or nil when the task
// has no work left.
//
// Machine suggestions that no human has confirmed come first, lowest
// confidence first. After those, untouched dataset items are claimed one at a
// time; a claim lost to a concurrent caller moves on to the next candidate,
// so no untouched item is handed out twice.
func (s *SelectorService) Next(ctx context.Context, taskID uuid.UUID) (*domain.ItemPresentation, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var leaseUntil *time.Time
	if s.cfg.LeaseDuration > 0 {
		t := now.Add(s.cfg.LeaseDuration)
		leaseUntil = &t
	}

	presentation, err := s.nextPending(ctx, task, now, leaseUntil)
	if err != nil || presentation != nil {
		return presentation, err
	}

	presentation, err = s.claimUntouched(ctx, task, now, leaseUntil)
	if err != nil || presentation != nil {
		return presentation, err
	}

	metrics.RecordSelection(metrics.TierNone)
	return nil, nil
}

func (s *SelectorService) nextPending(ctx context.Context, task *domain.Task, now time.Time, leaseUntil *time.Time) (*domain.ItemPresentation, error) {
	pending, err := s.items.NextPending(ctx, task.ID, now, leaseUntil)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending item: %w", err)
	}
	if pending == nil {
		return nil, nil
	}

	item, err := s.datasets.GetItemByID(ctx, pending.DatasetItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset item: %w", err)
	}

	metrics.RecordSelection(metrics.TierPending)
	return &domain.ItemPresentation{
		DatasetItemID: item.ID,
		Content:       item.Content,
		Tags:          pending.Tags,
		RelationTags:  nonNil(pending.RelationTags),
		Confidence:    pending.Confidence,
		ByHuman:       false,
	}, nil
}

func (s *SelectorService) claimUntouched(ctx context.Context, task *domain.Task, now time.Time, leaseUntil *time.Time) (*domain.ItemPresentation, error) {
	after := uuid.Nil
	for {
		candidates, err := s.items.ListUntouched(ctx, task.ID, task.DatasetID, after, s.cfg.ScanBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list untouched items: %w", err)
		}

		for i := range candidates {
			item := &candidates[i]
			placeholder := &domain.TaskItem{
				TaskID:        task.ID,
				DatasetItemID: item.ID,
				Tags:          domain.PlaceholderSpans(item.ContentLength()),
				RelationTags:  []string{},
				Confidence:    0,
				ByHuman:       false,
				LeasedUntil:   leaseUntil,
				CreatedAt:     now,
				UpdatedAt:     now,
			}

			err := s.items.Claim(ctx, placeholder)
			if apperrors.IsConflict(err) {
				metrics.RecordClaimConflict()
				s.logger.Debug("claim lost, trying next candidate",
					zap.String("task_id", task.ID.String()),
					zap.String("dataset_item_id", item.ID.String()),
				)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to claim item: %w", err)
			}

			metrics.RecordSelection(metrics.TierFresh)
			return &domain.ItemPresentation{
				DatasetItemID: item.ID,
				Content:       item.Content,
				Tags:          placeholder.Tags,
				RelationTags:  placeholder.RelationTags,
				Confidence:    0,
				ByHuman:       false,
			}, nil
		}

		if len(candidates) < s.cfg.ScanBatchSize {
			return nil, nil
		}
		after = candidates[len(candidates)-1].ID
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
