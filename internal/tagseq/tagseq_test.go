package tagseq

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

func personTags() domain.TagSet {
	return domain.TagSet{{Name: "Person", Symbol: "PER", Color: "#f00"}}
}

func TestValidate(t *testing.T) {
	vocab := personTags()

	tests := []struct {
		name      string
		spans     []domain.Span
		length    int
		wantErr   bool
		errSubstr string
	}{
		{
			name:   "exact partition",
			spans:  []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "O"}},
			length: 9,
		},
		{
			name:   "adjacent same symbols are kept",
			spans:  []domain.Span{{Length: 2, Symbol: "O"}, {Length: 7, Symbol: "O"}},
			length: 9,
		},
		{
			name:      "empty spans",
			spans:     nil,
			length:    9,
			wantErr:   true,
			errSubstr: "at least one span",
		},
		{
			name:      "zero length",
			spans:     []domain.Span{{Length: 0, Symbol: "O"}, {Length: 9, Symbol: "O"}},
			length:    9,
			wantErr:   true,
			errSubstr: "span 0: length",
		},
		{
			name:      "negative length",
			spans:     []domain.Span{{Length: 10, Symbol: "O"}, {Length: -1, Symbol: "O"}},
			length:    9,
			wantErr:   true,
			errSubstr: "span 1: length",
		},
		{
			name:      "unknown symbol",
			spans:     []domain.Span{{Length: 4, Symbol: "LOC"}, {Length: 5, Symbol: "O"}},
			length:    9,
			wantErr:   true,
			errSubstr: `unknown symbol "LOC"`,
		},
		{
			name:      "short total",
			spans:     []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 4, Symbol: "O"}},
			length:    9,
			wantErr:   true,
			errSubstr: "sum to 8",
		},
		{
			name:      "long total",
			spans:     []domain.Span{{Length: 10, Symbol: "O"}},
			length:    9,
			wantErr:   true,
			errSubstr: "sum to 10",
		},
		{
			name:      "length checked before symbol",
			spans:     []domain.Span{{Length: 4, Symbol: "LOC"}, {Length: 0, Symbol: "O"}},
			length:    4,
			wantErr:   true,
			errSubstr: "span 1: length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(vocab, tt.length, tt.spans, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.spans, got)
		})
	}
}

func TestValidateJSON(t *testing.T) {
	vocab := personTags()

	tests := []struct {
		name      string
		spans     string
		relations string
		length    int
		want      []domain.Span
		wantRel   []string
		errSubstr string
	}{
		{
			name:      "valid with relation tags",
			spans:     `[{"length":4,"symbol":"PER"},{"length":5,"symbol":"O"}]`,
			relations: `["works_for"]`,
			length:    9,
			want:      []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "O"}},
			wantRel:   []string{"works_for"},
		},
		{
			name:      "null relation tags become empty",
			spans:     `[{"length":9,"symbol":"O"}]`,
			relations: `null`,
			length:    9,
			want:      []domain.Span{{Length: 9, Symbol: "O"}},
			wantRel:   []string{},
		},
		{
			name:    "integral float length accepted",
			spans:   `[{"length":9.0,"symbol":"O"}]`,
			length:  9,
			want:    []domain.Span{{Length: 9, Symbol: "O"}},
			wantRel: []string{},
		},
		{
			name:      "not an array",
			spans:     `{"length":9,"symbol":"O"}`,
			length:    9,
			errSubstr: "must be an array",
		},
		{
			name:      "missing",
			spans:     ``,
			length:    9,
			errSubstr: "must be an array",
		},
		{
			name:      "empty array",
			spans:     `[]`,
			length:    9,
			errSubstr: "at least one span",
		},
		{
			name:      "element not an object",
			spans:     `[9]`,
			length:    9,
			errSubstr: "span 0: span must be an object",
		},
		{
			name:      "extra field",
			spans:     `[{"length":9,"symbol":"O","note":"x"}]`,
			length:    9,
			errSubstr: "exactly the fields",
		},
		{
			name:      "missing field",
			spans:     `[{"length":9}]`,
			length:    9,
			errSubstr: "exactly the fields",
		},
		{
			name:      "fractional length",
			spans:     `[{"length":4.5,"symbol":"O"},{"length":4.5,"symbol":"O"}]`,
			length:    9,
			errSubstr: "span 0: length",
		},
		{
			name:      "string length",
			spans:     `[{"length":"9","symbol":"O"}]`,
			length:    9,
			errSubstr: "span 0: length",
		},
		{
			name:      "boolean length",
			spans:     `[{"length":true,"symbol":"O"}]`,
			length:    9,
			errSubstr: "span 0: length",
		},
		{
			name:      "non-string symbol",
			spans:     `[{"length":9,"symbol":1}]`,
			length:    9,
			errSubstr: "symbol must be a string",
		},
		{
			name:      "shape checked on every span before lengths",
			spans:     `[{"length":0,"symbol":"O"},{"length":9}]`,
			length:    9,
			errSubstr: "span 1: span must have exactly",
		},
		{
			name:      "bad relation tags",
			spans:     `[{"length":9,"symbol":"O"}]`,
			relations: `[1,2]`,
			length:    9,
			errSubstr: "relation tags",
		},
		{
			name:      "relation tags not an array",
			spans:     `[{"length":9,"symbol":"O"}]`,
			relations: `"works_for"`,
			length:    9,
			errSubstr: "relation tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, rel, err := ValidateJSON(vocab, tt.length, json.RawMessage(tt.spans), json.RawMessage(tt.relations))
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spans)
			assert.Equal(t, tt.wantRel, rel)
		})
	}
}

func TestValidateReportsSpanIndex(t *testing.T) {
	_, err := Validate(NewSymbols("PER"), 9, []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "LOC"}}, nil)
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "1", appErr.Details["span"])
}

func TestValidateCountsUTF16Units(t *testing.T) {
	t.Run("accented latin", func(t *testing.T) {
		item := &domain.DatasetItem{Content: "Zoë läuft"}
		spans := []domain.Span{{Length: 3, Symbol: "PER"}, {Length: 6, Symbol: "O"}}

		_, err := Validate(personTags(), item.ContentLength(), spans, nil)
		assert.NoError(t, err)
	})

	t.Run("astral plane", func(t *testing.T) {
		item := &domain.DatasetItem{Content: "😀a"}

		_, err := Validate(personTags(), item.ContentLength(), []domain.Span{{Length: 3, Symbol: "O"}}, nil)
		assert.NoError(t, err)

		_, err = Validate(personTags(), item.ContentLength(), []domain.Span{{Length: 2, Symbol: "O"}}, nil)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestSymbols(t *testing.T) {
	s := NewSymbols("PER", "LOC")
	assert.True(t, s.Has("PER"))
	assert.False(t, s.Has("ORG"))
	assert.False(t, Symbols(nil).Has("PER"))
}
