package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// TaskItemRepository handles task item data operations in SQLite
type TaskItemRepository struct {
	db *gorm.DB
}

// NewTaskItemRepository creates a new task item repository
func NewTaskItemRepository(db *gorm.DB) *TaskItemRepository {
	return &TaskItemRepository{db: db}
}

var taskItemKey = []clause.Column{{Name: "task_id"}, {Name: "dataset_item_id"}}

// Claim inserts the item only if its key is free
func (r *TaskItemRepository) Claim(ctx context.Context, item *domain.TaskItem) error {
	m, err := toTaskItemModel(item)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: taskItemKey, DoNothing: true}).
		Create(m)
	if res.Error != nil {
		return fmt.Errorf("failed to claim task item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict("dataset item already claimed for this task")
	}
	return nil
}

// Upsert creates or fully replaces the record for the item's key
func (r *TaskItemRepository) Upsert(ctx context.Context, item *domain.TaskItem) error {
	m, err := toTaskItemModel(item)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: taskItemKey,
			DoUpdates: clause.AssignmentColumns([]string{
				"tags", "relation_tags", "confidence", "by_human", "leased_until", "updated_at",
			}),
		}).
		Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to upsert task item: %w", err)
	}
	return nil
}

// UpsertSuggestion writes a machine labeling unless a human already labeled the key.
// An existing lease is kept.
func (r *TaskItemRepository) UpsertSuggestion(ctx context.Context, item *domain.TaskItem) (bool, error) {
	m, err := toTaskItemModel(item)
	if err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO task_items (task_id, dataset_item_id, tags, relation_tags, confidence, by_human, leased_until, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT (task_id, dataset_item_id) DO UPDATE SET
			tags = excluded.tags,
			relation_tags = excluded.relation_tags,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
		WHERE task_items.by_human = ?`,
		m.TaskID, m.DatasetItemID, m.Tags, m.RelationTags, m.Confidence, false, m.CreatedAt, m.UpdatedAt,
		false,
	)
	if res.Error != nil {
		return false, fmt.Errorf("failed to upsert suggestion: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// NextPending returns the lowest-confidence record no human has confirmed
func (r *TaskItemRepository) NextPending(ctx context.Context, taskID uuid.UUID, now time.Time, leaseUntil *time.Time) (*domain.TaskItem, error) {
	var found *taskItemModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("task_id = ? AND by_human = ?", taskID.String(), false)
		if leaseUntil != nil {
			q = q.Where("leased_until IS NULL OR leased_until <= ?", now.UnixNano())
		}

		var m taskItemModel
		err := q.Order("confidence ASC").Order("dataset_item_id ASC").First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if leaseUntil != nil {
			until := leaseUntil.UnixNano()
			err := tx.Model(&taskItemModel{}).
				Where("task_id = ? AND dataset_item_id = ?", m.TaskID, m.DatasetItemID).
				Update("leased_until", until).Error
			if err != nil {
				return err
			}
			m.LeasedUntil = &until
		}

		found = &m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find pending task item: %w", err)
	}
	if found == nil {
		return nil, nil
	}
	return found.toDomain()
}

// ListUntouched pages through dataset items that have no record for the task
func (r *TaskItemRepository) ListUntouched(ctx context.Context, taskID, datasetID, after uuid.UUID, limit int) ([]domain.DatasetItem, error) {
	var models []datasetItemModel
	err := r.db.WithContext(ctx).
		Where("dataset_id = ? AND id > ?", datasetID.String(), after.String()).
		Where("NOT EXISTS (SELECT 1 FROM task_items ti WHERE ti.task_id = ? AND ti.dataset_item_id = dataset_items.id)", taskID.String()).
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list untouched items: %w", err)
	}
	return toDatasetItems(models)
}

// Get retrieves the record for a key
func (r *TaskItemRepository) Get(ctx context.Context, taskID, datasetItemID uuid.UUID) (*domain.TaskItem, error) {
	var m taskItemModel
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND dataset_item_id = ?", taskID.String(), datasetItemID.String()).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("task item")
		}
		return nil, fmt.Errorf("failed to get task item: %w", err)
	}
	return m.toDomain()
}

// ListAssignedItemIDs returns every dataset item that has a record for the task
func (r *TaskItemRepository) ListAssignedItemIDs(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	var raw []string
	err := r.db.WithContext(ctx).Model(&taskItemModel{}).
		Where("task_id = ?", taskID.String()).
		Order("dataset_item_id ASC").
		Pluck("dataset_item_id", &raw).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned items: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid dataset item id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListByTask lists records of a task in dataset item order
func (r *TaskItemRepository) ListByTask(ctx context.Context, filter *domain.TaskItemFilter, limit, offset int) ([]domain.TaskItem, int64, error) {
	q := r.db.WithContext(ctx).Model(&taskItemModel{}).Where("task_id = ?", filter.TaskID.String())
	if filter.ByHuman != nil {
		q = q.Where("by_human = ?", *filter.ByHuman)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count task items: %w", err)
	}

	var models []taskItemModel
	if err := q.Order("dataset_item_id ASC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list task items: %w", err)
	}

	items := make([]domain.TaskItem, 0, len(models))
	for i := range models {
		item, err := models[i].toDomain()
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *item)
	}
	return items, total, nil
}

// CountByTask counts human-confirmed and machine-proposed records of a task
func (r *TaskItemRepository) CountByTask(ctx context.Context, taskID uuid.UUID) (human, machine int64, err error) {
	var rows []struct {
		ByHuman bool
		Total   int64
	}
	err = r.db.WithContext(ctx).Model(&taskItemModel{}).
		Select("by_human, COUNT(*) AS total").
		Where("task_id = ?", taskID.String()).
		Group("by_human").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count task items: %w", err)
	}

	for _, row := range rows {
		if row.ByHuman {
			human = row.Total
		} else {
			machine = row.Total
		}
	}
	return human, machine, nil
}
