package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetItemContentLength(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"John runs", 9},
		{"Zoë läuft", 9},
		{"人がいる", 4},
		{"😀a", 3},
		{"𠮷野家", 4},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			item := &DatasetItem{Content: tt.content}
			assert.Equal(t, tt.want, item.ContentLength())
		})
	}
}

func TestPlaceholderSpansUseUTF16Length(t *testing.T) {
	item := &DatasetItem{Content: "hi 😀"}
	assert.Equal(t, []Span{{Length: 5, Symbol: ReservedSymbol}}, PlaceholderSpans(item.ContentLength()))
}
