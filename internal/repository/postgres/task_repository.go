package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/labelflow/labelflow/api/internal/domain"
	"github.com/labelflow/labelflow/api/internal/pkg/database"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// TaskRepository handles task data operations in PostgreSQL
type TaskRepository struct {
	db *database.PostgresDB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.PostgresDB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	tags, relations, err := encodeTagSet(task)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, dataset_id, name, tags, relation_tags, machine_running, machine_status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		task.ID,
		task.DatasetID,
		task.Name,
		tags,
		relations,
		task.MachineRunning,
		task.MachineStatus,
		task.Version,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, dataset_id, name, tags, relation_tags, machine_running, machine_status, version, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	var (
		task      domain.Task
		tags      []byte
		relations []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.DatasetID,
		&task.Name,
		&tags,
		&relations,
		&task.MachineRunning,
		&task.MachineStatus,
		&task.Version,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("task")
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task.Tags = domain.TagSet{}
	if err := json.Unmarshal(tags, &task.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	task.RelationTags = []string{}
	if err := json.Unmarshal(relations, &task.RelationTags); err != nil {
		return nil, fmt.Errorf("failed to decode relation tags: %w", err)
	}

	return &task, nil
}

// UpdateTagSet writes the tag set if the stored version still matches
func (r *TaskRepository) UpdateTagSet(ctx context.Context, task *domain.Task) error {
	tags, relations, err := encodeTagSet(task)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET tags = $3, relation_tags = $4, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	var (
		version   int64
		updatedAt time.Time
	)
	err = r.db.Pool.QueryRow(ctx, query, task.ID, task.Version, tags, relations).Scan(&version, &updatedAt)
	if err == nil {
		task.Version = version
		task.UpdatedAt = updatedAt
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update tag set: %w", err)
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, task.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		return apperrors.NotFound("task")
	}
	return apperrors.Conflict("task version is stale")
}

// UpdateMachineState sets the machine labeler flag and status
func (r *TaskRepository) UpdateMachineState(ctx context.Context, id uuid.UUID, running bool, status string) error {
	query := `
		UPDATE tasks
		SET machine_running = $2, machine_status = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, running, status)
	if err != nil {
		return fmt.Errorf("failed to update machine state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("task")
	}

	return nil
}

func encodeTagSet(task *domain.Task) ([]byte, []byte, error) {
	tags := task.Tags
	if tags == nil {
		tags = domain.TagSet{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	relations := task.RelationTags
	if relations == nil {
		relations = []string{}
	}
	relationsJSON, err := json.Marshal(relations)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode relation tags: %w", err)
	}

	return tagsJSON, relationsJSON, nil
}
