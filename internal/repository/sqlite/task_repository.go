package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// TaskRepository handles task data operations in SQLite
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	m, err := toTaskModel(task)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var m taskModel
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("task")
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return m.toDomain()
}

// UpdateTagSet writes the tag set if the stored version still matches
func (r *TaskRepository) UpdateTagSet(ctx context.Context, task *domain.Task) error {
	tags, relations, err := encodeTagSet(task)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&taskModel{}).
		Where("id = ? AND version = ?", task.ID.String(), task.Version).
		Updates(map[string]any{
			"tags":          tags,
			"relation_tags": relations,
			"version":       gorm.Expr("version + 1"),
			"updated_at":    now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update tag set: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&taskModel{}).Where("id = ?", task.ID.String()).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check task: %w", err)
		}
		if count == 0 {
			return apperrors.NotFound("task")
		}
		return apperrors.Conflict("task version is stale")
	}

	task.Version++
	task.UpdatedAt = now
	return nil
}

// UpdateMachineState sets the machine labeler flag and status
func (r *TaskRepository) UpdateMachineState(ctx context.Context, id uuid.UUID, running bool, status string) error {
	res := r.db.WithContext(ctx).Model(&taskModel{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{
			"machine_running": running,
			"machine_status":  status,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update machine state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("task")
	}
	return nil
}
