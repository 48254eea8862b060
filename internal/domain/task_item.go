package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Span is a contiguous run of content carrying one symbol
type Span struct {
	Length int    `json:"length"`
	Symbol string `json:"symbol"`
}

// HumanConfidence is stored on every human submission. It marks the labeling
// as confirmed and replaces any machine score the record carried.
const HumanConfidence = 1.0

// PlaceholderSpans covers content of the given length with a single unlabeled span
func PlaceholderSpans(contentLength int) []Span {
	return []Span{{Length: contentLength, Symbol: ReservedSymbol}}
}

// TaskItem is the labeling of one dataset item within one task.
// At most one exists per (TaskID, DatasetItemID).
type TaskItem struct {
	TaskID        uuid.UUID  `json:"taskId"`
	DatasetItemID uuid.UUID  `json:"datasetItemId"`
	Tags          []Span     `json:"tags"`
	RelationTags  []string   `json:"relationTags"`
	Confidence    float64    `json:"confidence"`
	ByHuman       bool       `json:"byHuman"`
	LeasedUntil   *time.Time `json:"leasedUntil,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TaskItemFilter represents filter options for listing task items
type TaskItemFilter struct {
	TaskID  uuid.UUID
	ByHuman *bool
}

// ItemPresentation is what an annotator is shown for their next item
type ItemPresentation struct {
	DatasetItemID uuid.UUID `json:"datasetItemId"`
	Content       string    `json:"content"`
	Tags          []Span    `json:"tags"`
	RelationTags  []string  `json:"relationTags"`
	Confidence    float64   `json:"confidence"`
	ByHuman       bool      `json:"byHuman"`
}

// SubmissionInput is a human labeling of one item. Both fields are kept raw
// so the span shape can be checked strictly.
type SubmissionInput struct {
	Tags         json.RawMessage `json:"tags"`
	RelationTags json.RawMessage `json:"relationTags"`
}

// MachineSuggestion is one machine-produced labeling
type MachineSuggestion struct {
	DatasetItemID uuid.UUID `json:"dataset_item_id"`
	Tags          []Span    `json:"tags"`
	RelationTags  []string  `json:"relation_tags,omitempty"`
	Confidence    float64   `json:"confidence"`
}

// SuggestionBatch is a batch of machine suggestions for one task
type SuggestionBatch struct {
	TaskID      uuid.UUID           `json:"task_id"`
	Suggestions []MachineSuggestion `json:"suggestions"`
	Final       bool                `json:"final"`
}

// SuggestionResult counts what happened to a batch of suggestions
type SuggestionResult struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"` // human work already present
	Invalid int `json:"invalid"`
}
