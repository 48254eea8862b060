// Package sqlite implements the service repositories on an embedded SQLite
// database through gorm. It lets labelflow run without PostgreSQL and backs
// the service-level tests.
package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/labelflow/labelflow/api/internal/domain"
)

type datasetModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"not null"`
	Description string `gorm:"not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (datasetModel) TableName() string { return "datasets" }

type datasetItemModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	DatasetID string `gorm:"size:36;not null;index:idx_dataset_items_dataset_id"`
	Content   string `gorm:"not null"`
	CreatedAt time.Time
}

func (datasetItemModel) TableName() string { return "dataset_items" }

type taskModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	DatasetID      string `gorm:"size:36;not null;index"`
	Name           string `gorm:"not null"`
	Tags           string `gorm:"not null;default:'[]'"`
	RelationTags   string `gorm:"not null;default:'[]'"`
	MachineRunning bool   `gorm:"not null;default:false"`
	MachineStatus  string `gorm:"not null;default:''"`
	Version        int64  `gorm:"not null;default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (taskModel) TableName() string { return "tasks" }

// taskItemModel keeps leased_until as unix nanoseconds so lease comparisons
// are numeric
type taskItemModel struct {
	TaskID        string  `gorm:"primaryKey;size:36"`
	DatasetItemID string  `gorm:"primaryKey;size:36"`
	Tags          string  `gorm:"not null;default:'[]'"`
	RelationTags  string  `gorm:"not null;default:'[]'"`
	Confidence    float64 `gorm:"not null;default:0;index:idx_task_items_pending,priority:3"`
	ByHuman       bool    `gorm:"not null;default:false;index:idx_task_items_pending,priority:2"`
	LeasedUntil   *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (taskItemModel) TableName() string { return "task_items" }

// Models returns the gorm models to migrate
func Models() []any {
	return []any{&datasetModel{}, &datasetItemModel{}, &taskModel{}, &taskItemModel{}}
}

func toDatasetModel(d *domain.Dataset) *datasetModel {
	return &datasetModel{
		ID:          d.ID.String(),
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (m *datasetModel) toDomain() (*domain.Dataset, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset id %q: %w", m.ID, err)
	}
	return &domain.Dataset{
		ID:          id,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

func (m *datasetItemModel) toDomain() (domain.DatasetItem, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return domain.DatasetItem{}, fmt.Errorf("invalid dataset item id %q: %w", m.ID, err)
	}
	datasetID, err := uuid.Parse(m.DatasetID)
	if err != nil {
		return domain.DatasetItem{}, fmt.Errorf("invalid dataset id %q: %w", m.DatasetID, err)
	}
	return domain.DatasetItem{
		ID:        id,
		DatasetID: datasetID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}, nil
}

func toTaskModel(t *domain.Task) (*taskModel, error) {
	tags, relations, err := encodeTagSet(t)
	if err != nil {
		return nil, err
	}
	return &taskModel{
		ID:             t.ID.String(),
		DatasetID:      t.DatasetID.String(),
		Name:           t.Name,
		Tags:           tags,
		RelationTags:   relations,
		MachineRunning: t.MachineRunning,
		MachineStatus:  t.MachineStatus,
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}, nil
}

func encodeTagSet(t *domain.Task) (string, string, error) {
	tags := t.Tags
	if tags == nil {
		tags = domain.TagSet{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode tags: %w", err)
	}
	relations := t.RelationTags
	if relations == nil {
		relations = []string{}
	}
	relationsJSON, err := json.Marshal(relations)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode relation tags: %w", err)
	}
	return string(tagsJSON), string(relationsJSON), nil
}

func (m *taskModel) toDomain() (*domain.Task, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", m.ID, err)
	}
	datasetID, err := uuid.Parse(m.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset id %q: %w", m.DatasetID, err)
	}

	task := &domain.Task{
		ID:             id,
		DatasetID:      datasetID,
		Name:           m.Name,
		Tags:           domain.TagSet{},
		RelationTags:   []string{},
		MachineRunning: m.MachineRunning,
		MachineStatus:  m.MachineStatus,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(m.Tags), &task.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(m.RelationTags), &task.RelationTags); err != nil {
		return nil, fmt.Errorf("failed to decode relation tags: %w", err)
	}
	return task, nil
}

func toTaskItemModel(i *domain.TaskItem) (*taskItemModel, error) {
	tags := i.Tags
	if tags == nil {
		tags = []domain.Span{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode spans: %w", err)
	}
	relations := i.RelationTags
	if relations == nil {
		relations = []string{}
	}
	relationsJSON, err := json.Marshal(relations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode relation tags: %w", err)
	}

	m := &taskItemModel{
		TaskID:        i.TaskID.String(),
		DatasetItemID: i.DatasetItemID.String(),
		Tags:          string(tagsJSON),
		RelationTags:  string(relationsJSON),
		Confidence:    i.Confidence,
		ByHuman:       i.ByHuman,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
	if i.LeasedUntil != nil {
		n := i.LeasedUntil.UnixNano()
		m.LeasedUntil = &n
	}
	return m, nil
}

func (m *taskItemModel) toDomain() (*domain.TaskItem, error) {
	taskID, err := uuid.Parse(m.TaskID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", m.TaskID, err)
	}
	itemID, err := uuid.Parse(m.DatasetItemID)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset item id %q: %w", m.DatasetItemID, err)
	}

	item := &domain.TaskItem{
		TaskID:        taskID,
		DatasetItemID: itemID,
		RelationTags:  []string{},
		Confidence:    m.Confidence,
		ByHuman:       m.ByHuman,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(m.Tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode spans: %w", err)
	}
	if err := json.Unmarshal([]byte(m.RelationTags), &item.RelationTags); err != nil {
		return nil, fmt.Errorf("failed to decode relation tags: %w", err)
	}
	if m.LeasedUntil != nil {
		t := time.Unix(0, *m.LeasedUntil).UTC()
		item.LeasedUntil = &t
	}
	return item, nil
}
