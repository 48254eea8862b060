package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/labelflow/labelflow/api/internal/domain"
	"github.com/labelflow/labelflow/api/internal/pkg/circuitbreaker"
)

// DatasetRepository defines dataset repository operations
type DatasetRepository interface {
	Create(ctx context.Context, dataset *domain.Dataset) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error)
	CountItems(ctx context.Context, datasetID uuid.UUID) (int64, error)

	// Item operations
	CreateItems(ctx context.Context, items []domain.DatasetItem) error
	GetItemByID(ctx context.Context, id uuid.UUID) (*domain.DatasetItem, error)
	ListItems(ctx context.Context, datasetID uuid.UUID, limit, offset int) ([]domain.DatasetItem, int64, error)
}

// TaskRepository defines task repository operations
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	// UpdateTagSet writes Tags and RelationTags only if the stored version
	// still equals task.Version, then increments task.Version.
	// A stale version is a Conflict.
	UpdateTagSet(ctx context.Context, task *domain.Task) error
	UpdateMachineState(ctx context.Context, id uuid.UUID, running bool, status string) error
}

// TaskItemRepository is the claim store mapping (task, dataset item) to its labeling
type TaskItemRepository interface {
	// Claim inserts item only if no record exists for its key; otherwise Conflict
	Claim(ctx context.Context, item *domain.TaskItem) error
	// Upsert creates or fully replaces the record for the key
	Upsert(ctx context.Context, item *domain.TaskItem) error
	// UpsertSuggestion writes unless a human already labeled the key; reports whether it wrote
	UpsertSuggestion(ctx context.Context, item *domain.TaskItem) (bool, error)
	// NextPending returns the lowest-confidence non-human record, or nil.
	// With a non-nil leaseUntil only unleased records qualify and the
	// returned one is leased until leaseUntil.
	NextPending(ctx context.Context, taskID uuid.UUID, now time.Time, leaseUntil *time.Time) (*domain.TaskItem, error)
	// ListUntouched pages through dataset items with no record for the task,
	// ordered by id and starting after the given id.
	ListUntouched(ctx context.Context, taskID, datasetID, after uuid.UUID, limit int) ([]domain.DatasetItem, error)
	Get(ctx context.Context, taskID, datasetItemID uuid.UUID) (*domain.TaskItem, error)
	ListAssignedItemIDs(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)
	ListByTask(ctx context.Context, filter *domain.TaskItemFilter, limit, offset int) ([]domain.TaskItem, int64, error)
	CountByTask(ctx context.Context, taskID uuid.UUID) (human, machine int64, err error)
}

// Repositories bundles the store used by the services
type Repositories struct {
	Datasets  DatasetRepository
	Tasks     TaskRepository
	TaskItems TaskItemRepository
}

// Guarded returns repositories whose every call runs under g
func (r Repositories) Guarded(g *circuitbreaker.Guard) Repositories {
	return Repositories{
		Datasets:  &guardedDatasets{next: r.Datasets, g: g},
		Tasks:     &guardedTasks{next: r.Tasks, g: g},
		TaskItems: &guardedTaskItems{next: r.TaskItems, g: g},
	}
}

type guardedDatasets struct {
	next DatasetRepository
	g    *circuitbreaker.Guard
}

func (r *guardedDatasets) Create(ctx context.Context, dataset *domain.Dataset) error {
	return r.g.Do(ctx, func(ctx context.Context) error { return r.next.Create(ctx, dataset) })
}

func (r *guardedDatasets) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	return circuitbreaker.Run(ctx, r.g, func(ctx context.Context) (*domain.Dataset, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *guardedDatasets) CountItems(ctx context.Context, datasetID uuid.UUID) (int64, error) {
	return circuitbreaker.Run(ctx, r.g, func(ctx context.Context) (int64, error) {
		return r.next.CountItems(ctx, datasetID)
	})
}

func (r *guardedDatasets) CreateItems(ctx context.Context, items []domain.DatasetItem) error {
	return r.g.Do(ctx, func(ctx context.Context) error { return r.next.CreateItems(ctx, items) })
}

func (r *guardedDatasets) GetItemByID(ctx context.Context, id uuid.UUID) (*domain.DatasetItem, error) {
	return circuitbreaker.Run(ctx, r.g, func(ctx context.Context) (*domain.DatasetItem, error) {
		return r.next.GetItemByID(ctx, id)
	})
}

func (r *guardedDatasets) ListItems(ctx context.Context, datasetID uuid.UUID, limit, offset int) ([]domain.DatasetItem, int64, error) {
	var total int64
	items, err := circuitbreaker.Run(ctx, r.g, func(ctx context.Context) ([]domain.DatasetItem, error) {
		items, n, err := r.next.ListItems(ctx, datasetID, limit, offset)
		total = n
		return items, err
	})
	return items, total, err
}

type guardedTasks struct {
	next TaskRepository
	g    *circuitbreaker.Guard
}

func (r *guardedTasks) Create(ctx context.Context, task *domain.Task) error {
	return r.g.Do(ctx, func(ctx context.Context) error { return r.next.Create(ctx, task) })
}

func (r *guardedTasks) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return circuitbreaker.Run(ctx, r.g, func(ctx context.Context) (*domain.Task, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *guardedTasks) UpdateTagSet(ctx context.Context, task *domain.Task) error {
	return r.g.Do(ctx, func(ctx context.Context) error { return r.next.UpdateTagSet(ctx, task) })
}

func (r *guardedTasks) UpdateMachineState(ctx context.Context, id uuid.UUID, running bool, status string) error {
	return r.g.Do(ctx, func(ctx context.Context) error {
		return r.next.UpdateMachineState(ctx, id, running, status)
	})
}

type guardedTaskItems struct {
	next TaskItemRepository
	g    *circuitbreaker.Guard
}

func (r *guardedTaskItems) Claim(ctx context.Context, item *domain.TaskItem) error {
	return r.g.Do(ctx, func(ctx context.Context) error { return r.next.Claim(ctx, item) })
}

func (r *guardedTaskItems) Upsert(ctx context.Context, item *domain.TaskItem) error {
	return r.g.Do(ctx, func(ctx context.Context) error { return r.next.Upsert(ctx, item) })
}

func (r *guardedTaskItems) UpsertSuggestion(ctx context.Context, item *domain.TaskItem) (bool, error) {
	return circuitbreaker.Run(ctx, r.g, func(ctx context.Context) (bool, error) {
		return r.next.UpsertSuggestion(ctx, item)
	})
}

func (r *guardedTaskItems) NextPending(ctx context.Context, taskID uuid.UUID, now time.Time, leaseUntil *time.Time) (*domain.TaskItem, error) {
	return circuitbreaker.Run(ctx, r.g, func(ctx context.Context) (*domain.TaskItem, error) {
		return r.next.NextPending(ctx, taskID, now, leaseUntil)
	})
}

func (r *guardedTaskItems) ListUntouched(ctx context.Context, taskID, datasetID, after uuid.UUID, limit int) ([]domain.DatasetItem, error) {
	return circuitbreaker.Run(ctx, r.g, func(ctx context.Context) ([]domain.DatasetItem, error) {
		return r.next.ListUntouched(ctx, taskID, datasetID, after, limit)
	})
}

func (r *guardedTaskItems) Get(ctx context.Context, taskID, datasetItemID uuid.UUID) (*domain.TaskItem, error) {
	return circuitbreaker.Run(ctx, r.g, func(ctx context.Context) (*domain.TaskItem, error) {
		return r.next.Get(ctx, taskID, datasetItemID)
	})
}

func (r *guardedTaskItems) ListAssignedItemIDs(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	return circuitbreaker.Run(ctx, r.g, func(ctx context.Context) ([]uuid.UUID, error) {
		return r.next.ListAssignedItemIDs(ctx, taskID)
	})
}

func (r *guardedTaskItems) ListByTask(ctx context.Context, filter *domain.TaskItemFilter, limit, offset int) ([]domain.TaskItem, int64, error) {
	var total int64
	items, err := circuitbreaker.Run(ctx, r.g, func(ctx context.Context) ([]domain.TaskItem, error) {
		items, n, err := r.next.ListByTask(ctx, filter, limit, offset)
		total = n
		return items, err
	})
	return items, total, err
}

func (r *guardedTaskItems) CountByTask(ctx context.Context, taskID uuid.UUID) (int64, int64, error) {
	var machine int64
	human, err := circuitbreaker.Run(ctx, r.g, func(ctx context.Context) (int64, error) {
		h, m, err := r.next.CountByTask(ctx, taskID)
		machine = m
		return h, err
	})
	return human, machine, err
}
