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

// TaskService handles task creation and reporting
type TaskService struct {
	tasks    TaskRepository
	datasets DatasetRepository
	items    TaskItemRepository
}

// NewTaskService creates a new task service
func NewTaskService(repos Repositories) *TaskService {
	return &TaskService{
		tasks:    repos.Tasks,
		datasets: repos.Datasets,
		items:    repos.TaskItems,
	}
}

// Create creates a task over an existing dataset. Initial tags go through the
// same checks as AddTag.
func (s *TaskService) Create(ctx context.Context, input *domain.TaskInput) (*domain.Task, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidArgument("task name is required")
	}
	if input.DatasetID == uuid.Nil {
		return nil, apperrors.InvalidArgument("dataset id is required")
	}

	dataset, err := s.datasets.GetByID(ctx, input.DatasetID)
	if err != nil {
		return nil, err
	}

	tags := domain.TagSet{}
	for _, def := range input.Tags {
		if tags, err = tags.Add(def); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:           uuid.New(),
		DatasetID:    dataset.ID,
		Name:         input.Name,
		Tags:         tags,
		RelationTags: nonNil(input.RelationTags),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	task.Dataset = dataset

	return task, nil
}

// Progress reports how many items of the task's dataset are labeled
func (s *TaskService) Progress(ctx context.Context, taskID uuid.UUID) (*domain.TaskProgress, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	total, err := s.datasets.CountItems(ctx, task.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to count dataset items: %w", err)
	}

	human, machine, err := s.items.CountByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to count task items: %w", err)
	}

	untouched := total - human - machine
	if untouched < 0 {
		untouched = 0
	}

	return &domain.TaskProgress{
		TaskID:          taskID,
		TotalItems:      total,
		HumanConfirmed:  human,
		MachineProposed: machine,
		Untouched:       untouched,
	}, nil
}

// ListItems lists the stored labelings of a task
func (s *TaskService) ListItems(ctx context.Context, filter *domain.TaskItemFilter, limit, offset int) ([]domain.TaskItem, int64, error) {
	if _, err := s.tasks.GetByID(ctx, filter.TaskID); err != nil {
		return nil, 0, err
	}
	return s.items.ListByTask(ctx, filter, limit, offset)
}

// AssignedItemIDs lists the dataset items that already have a record in the task
func (s *TaskService) AssignedItemIDs(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.items.ListAssignedItemIDs(ctx, taskID)
}
