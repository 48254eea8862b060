package domain

import (
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
)

// Dataset is a named collection of text items
type Dataset struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Aggregated fields
	ItemCount int64 `json:"itemCount,omitempty"`
}

// DatasetInput represents input for creating a dataset
type DatasetInput struct {
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// DatasetItem is one immutable piece of text to be labeled
type DatasetItem struct {
	ID        uuid.UUID `json:"id"`
	DatasetID uuid.UUID `json:"datasetId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContentLength is the length of the content in UTF-16 code units, the unit
// browser clients count span offsets in. Characters outside the Basic
// Multilingual Plane count twice.
func (i *DatasetItem) ContentLength() int {
	n := 0
	for _, r := range i.Content {
		n += utf16.RuneLen(r)
	}
	return n
}

// DatasetItemInput represents input for adding a dataset item
type DatasetItemInput struct {
	Content string `json:"content" validate:"required"`
}

// DatasetItemsInput represents a bulk add of dataset items
type DatasetItemsInput struct {
	Items []DatasetItemInput `json:"items" validate:"required,min=1,max=1000,dive"`
}
