package domain

import (
	"time"

	"github.com/google/uuid"
)

// MachineStatusWaiting is the status set when a task is handed to the machine labeler
const MachineStatusWaiting = "waiting for machine labeler"

// Task is a labeling job over one dataset
type Task struct {
	ID             uuid.UUID `json:"id"`
	DatasetID      uuid.UUID `json:"datasetId"`
	Name           string    `json:"name"`
	Tags           TagSet    `json:"tags"`
	RelationTags   []string  `json:"relationTags"`
	MachineRunning bool      `json:"machineRunning"`
	MachineStatus  string    `json:"machineStatus"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Related data
	Dataset *Dataset `json:"dataset,omitempty"`
}

// TaskInput represents input for creating a task
type TaskInput struct {
	DatasetID    uuid.UUID `json:"datasetId" validate:"required"`
	Name         string    `json:"name" validate:"required,notblank,max=255"`
	Tags         []TagDef  `json:"tags,omitempty" validate:"dive"`
	RelationTags []string  `json:"relationTags,omitempty"`
}

// TagInput represents input for adding a tag
type TagInput struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Color  string `json:"color"`
}

// TagUpdateInput represents input for modifying a tag
type TagUpdateInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TagOrderInput represents input for reordering tags
type TagOrderInput struct {
	Symbols []string `json:"symbols"`
}

// RelationTagsInput represents input for replacing relation tags
type RelationTagsInput struct {
	Names []string `json:"names"`
}

// TaskProgress summarizes how far a task has been labeled
type TaskProgress struct {
	TaskID          uuid.UUID `json:"taskId"`
	TotalItems      int64     `json:"totalItems"`
	HumanConfirmed  int64     `json:"humanConfirmed"`
	MachineProposed int64     `json:"machineProposed"`
	Untouched       int64     `json:"untouched"`
}
