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

const taskItemColumns = `task_id, dataset_item_id, tags, relation_tags, confidence, by_human, leased_until, created_at, updated_at`

// TaskItemRepository handles task item data operations in PostgreSQL
type TaskItemRepository struct {
	db *database.PostgresDB
}

// NewTaskItemRepository creates a new task item repository
func NewTaskItemRepository(db *database.PostgresDB) *TaskItemRepository {
	return &TaskItemRepository{db: db}
}

// Claim inserts the item only if its key is free
func (r *TaskItemRepository) Claim(ctx context.Context, item *domain.TaskItem) error {
	tags, relations, err := encodeSpans(item)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO task_items (` + taskItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (task_id, dataset_item_id) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		item.TaskID,
		item.DatasetItemID,
		tags,
		relations,
		item.Confidence,
		item.ByHuman,
		item.LeasedUntil,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to claim task item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict("dataset item already claimed for this task")
	}

	return nil
}

// Upsert creates or fully replaces the record for the item's key
func (r *TaskItemRepository) Upsert(ctx context.Context, item *domain.TaskItem) error {
	tags, relations, err := encodeSpans(item)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO task_items (` + taskItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (task_id, dataset_item_id) DO UPDATE SET
			tags = EXCLUDED.tags,
			relation_tags = EXCLUDED.relation_tags,
			confidence = EXCLUDED.confidence,
			by_human = EXCLUDED.by_human,
			leased_until = EXCLUDED.leased_until,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.Pool.Exec(ctx, query,
		item.TaskID,
		item.DatasetItemID,
		tags,
		relations,
		item.Confidence,
		item.ByHuman,
		item.LeasedUntil,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task item: %w", err)
	}

	return nil
}

// UpsertSuggestion writes a machine labeling unless a human already labeled the key.
// An existing lease is kept.
func (r *TaskItemRepository) UpsertSuggestion(ctx context.Context, item *domain.TaskItem) (bool, error) {
	tags, relations, err := encodeSpans(item)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO task_items (task_id, dataset_item_id, tags, relation_tags, confidence, by_human, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
		ON CONFLICT (task_id, dataset_item_id) DO UPDATE SET
			tags = EXCLUDED.tags,
			relation_tags = EXCLUDED.relation_tags,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at
		WHERE task_items.by_human = FALSE
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		item.TaskID,
		item.DatasetItemID,
		tags,
		relations,
		item.Confidence,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert suggestion: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// NextPending returns the lowest-confidence record no human has confirmed.
// With a lease, concurrent callers skip rows another transaction is leasing.
func (r *TaskItemRepository) NextPending(ctx context.Context, taskID uuid.UUID, now time.Time, leaseUntil *time.Time) (*domain.TaskItem, error) {
	var row pgx.Row
	if leaseUntil == nil {
		query := `
			SELECT ` + taskItemColumns + `
			FROM task_items
			WHERE task_id = $1 AND by_human = FALSE
			ORDER BY confidence ASC, dataset_item_id ASC
			LIMIT 1
		`
		row = r.db.Pool.QueryRow(ctx, query, taskID)
	} else {
		query := `
			UPDATE task_items
			SET leased_until = $3
			WHERE (task_id, dataset_item_id) = (
				SELECT task_id, dataset_item_id
				FROM task_items
				WHERE task_id = $1 AND by_human = FALSE
				  AND (leased_until IS NULL OR leased_until <= $2)
				ORDER BY confidence ASC, dataset_item_id ASC
				LIMIT 1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING ` + taskItemColumns
		row = r.db.Pool.QueryRow(ctx, query, taskID, now, *leaseUntil)
	}

	item, err := scanTaskItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pending task item: %w", err)
	}

	return item, nil
}

// ListUntouched pages through dataset items that have no record for the task
func (r *TaskItemRepository) ListUntouched(ctx context.Context, taskID, datasetID, after uuid.UUID, limit int) ([]domain.DatasetItem, error) {
	query := `
		SELECT di.id, di.dataset_id, di.content, di.created_at
		FROM dataset_items di
		WHERE di.dataset_id = $1 AND di.id > $2
		  AND NOT EXISTS (
			SELECT 1 FROM task_items ti
			WHERE ti.task_id = $3 AND ti.dataset_item_id = di.id
		  )
		ORDER BY di.id ASC
		LIMIT $4
	`

	rows, err := r.db.Pool.Query(ctx, query, datasetID, after, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list untouched items: %w", err)
	}

	return scanDatasetItems(rows)
}

// Get retrieves the record for a key
func (r *TaskItemRepository) Get(ctx context.Context, taskID, datasetItemID uuid.UUID) (*domain.TaskItem, error) {
	query := `
		SELECT ` + taskItemColumns + `
		FROM task_items
		WHERE task_id = $1 AND dataset_item_id = $2
	`

	item, err := scanTaskItem(r.db.Pool.QueryRow(ctx, query, taskID, datasetItemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("task item")
		}
		return nil, fmt.Errorf("failed to get task item: %w", err)
	}

	return item, nil
}

// ListAssignedItemIDs returns every dataset item that has a record for the task
func (r *TaskItemRepository) ListAssignedItemIDs(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT dataset_item_id FROM task_items WHERE task_id = $1 ORDER BY dataset_item_id`

	rows, err := r.db.Pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned items: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan assigned items: %w", err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}

	return ids, nil
}

// ListByTask lists records of a task in dataset item order
func (r *TaskItemRepository) ListByTask(ctx context.Context, filter *domain.TaskItemFilter, limit, offset int) ([]domain.TaskItem, int64, error) {
	baseQuery := `FROM task_items WHERE task_id = $1`
	args := []interface{}{filter.TaskID}
	argIndex := 2

	if filter.ByHuman != nil {
		baseQuery += fmt.Sprintf(" AND by_human = $%d", argIndex)
		args = append(args, *filter.ByHuman)
		argIndex++
	}

	var totalCount int64
	if err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count task items: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY dataset_item_id ASC
		LIMIT $%d OFFSET $%d
	`, taskItemColumns, baseQuery, argIndex, argIndex+1)

	args = append(args, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list task items: %w", err)
	}
	defer rows.Close()

	items := []domain.TaskItem{}
	for rows.Next() {
		item, err := scanTaskItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read task items: %w", err)
	}

	return items, totalCount, nil
}

// CountByTask counts human-confirmed and machine-proposed records of a task
func (r *TaskItemRepository) CountByTask(ctx context.Context, taskID uuid.UUID) (human, machine int64, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE by_human),
			COUNT(*) FILTER (WHERE NOT by_human)
		FROM task_items
		WHERE task_id = $1
	`

	if err := r.db.Pool.QueryRow(ctx, query, taskID).Scan(&human, &machine); err != nil {
		return 0, 0, fmt.Errorf("failed to count task items: %w", err)
	}

	return human, machine, nil
}

func scanTaskItem(row pgx.Row) (*domain.TaskItem, error) {
	var (
		item      domain.TaskItem
		tags      []byte
		relations []byte
	)
	if err := row.Scan(
		&item.TaskID,
		&item.DatasetItemID,
		&tags,
		&relations,
		&item.Confidence,
		&item.ByHuman,
		&item.LeasedUntil,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tags, &item.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode spans: %w", err)
	}
	item.RelationTags = []string{}
	if err := json.Unmarshal(relations, &item.RelationTags); err != nil {
		return nil, fmt.Errorf("failed to decode relation tags: %w", err)
	}

	return &item, nil
}

func encodeSpans(item *domain.TaskItem) ([]byte, []byte, error) {
	spans := item.Tags
	if spans == nil {
		spans = []domain.Span{}
	}
	tagsJSON, err := json.Marshal(spans)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode spans: %w", err)
	}

	relations := item.RelationTags
	if relations == nil {
		relations = []string{}
	}
	relationsJSON, err := json.Marshal(relations)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode relation tags: %w", err)
	}

	return tagsJSON, relationsJSON, nil
}
