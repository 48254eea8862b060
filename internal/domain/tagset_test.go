package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

func sampleTags() TagSet {
	return TagSet{
		{Name: "Person", Symbol: "PER", Color: "#f00"},
		{Name: "Location", Symbol: "LOC", Color: "#0f0"},
		{Name: "Organization", Symbol: "ORG", Color: "#00f"},
	}
}

func TestTagSetAdd(t *testing.T) {
	tests := []struct {
		name    string
		def     TagDef
		wantErr bool
	}{
		{name: "new tag", def: TagDef{Name: "Date", Symbol: "DATE", Color: "#ccc"}},
		{name: "empty name", def: TagDef{Symbol: "DATE", Color: "#ccc"}, wantErr: true},
		{name: "empty symbol", def: TagDef{Name: "Date", Color: "#ccc"}, wantErr: true},
		{name: "empty color", def: TagDef{Name: "Date", Symbol: "DATE"}, wantErr: true},
		{name: "whitespace in symbol", def: TagDef{Name: "Date", Symbol: "DA TE", Color: "#ccc"}, wantErr: true},
		{name: "tab in symbol", def: TagDef{Name: "Date", Symbol: "DATE\t", Color: "#ccc"}, wantErr: true},
		{name: "reserved symbol", def: TagDef{Name: "Other", Symbol: "O", Color: "#ccc"}, wantErr: true},
		{name: "duplicate symbol", def: TagDef{Name: "People", Symbol: "PER", Color: "#ccc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := sampleTags()
			got, err := orig.Add(tt.def)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsInvalidArgument(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, 4)
			assert.Equal(t, tt.def, got[3])
			assert.Equal(t, sampleTags(), orig, "receiver must not change")
		})
	}
}

func TestTagSetModify(t *testing.T) {
	t.Run("changes name and color", func(t *testing.T) {
		orig := sampleTags()
		got, err := orig.Modify("LOC", "Place", "#123")
		require.NoError(t, err)
		assert.Equal(t, TagDef{Name: "Place", Symbol: "LOC", Color: "#123"}, got[1])
		assert.Equal(t, "Location", orig[1].Name)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := sampleTags().Modify("DATE", "Date", "#123")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := sampleTags().Modify("LOC", "", "#123")
		assert.True(t, apperrors.IsInvalidArgument(err))
	})

	t.Run("empty color", func(t *testing.T) {
		_, err := sampleTags().Modify("LOC", "Place", "")
		assert.True(t, apperrors.IsInvalidArgument(err))
	})
}

func TestTagSetRemove(t *testing.T) {
	t.Run("removes present symbol", func(t *testing.T) {
		got, changed, err := sampleTags().Remove("LOC")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"PER", "ORG"}, got.Symbols())
	})

	t.Run("absent symbol is a no-op", func(t *testing.T) {
		got, changed, err := sampleTags().Remove("DATE")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, sampleTags(), got)
	})

	t.Run("empty symbol", func(t *testing.T) {
		_, _, err := sampleTags().Remove("")
		assert.True(t, apperrors.IsInvalidArgument(err))
	})
}

func TestTagSetReorder(t *testing.T) {
	tests := []struct {
		name        string
		symbols     []string
		want        []string
		wantChanged bool
		notFound    bool
		invalid     bool
	}{
		{name: "permutation", symbols: []string{"ORG", "PER", "LOC"}, want: []string{"ORG", "PER", "LOC"}, wantChanged: true},
		{name: "same order", symbols: []string{"PER", "LOC", "ORG"}, want: []string{"PER", "LOC", "ORG"}},
		{name: "omits a symbol", symbols: []string{"PER", "LOC"}, invalid: true},
		{name: "duplicates a symbol", symbols: []string{"PER", "LOC", "LOC"}, invalid: true},
		{name: "unknown symbol", symbols: []string{"PER", "DATE", "ORG"}, notFound: true},
		{name: "nil", symbols: nil, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := sampleTags()
			got, changed, err := orig.Reorder(tt.symbols)
			switch {
			case tt.notFound:
				assert.True(t, apperrors.IsNotFound(err))
			case tt.invalid:
				assert.True(t, apperrors.IsInvalidArgument(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.Symbols())
				assert.Equal(t, tt.wantChanged, changed)
			}
			assert.Equal(t, sampleTags(), orig, "receiver must not change")
		})
	}

	t.Run("single tag no-op reorder", func(t *testing.T) {
		one := TagSet{{Name: "Person", Symbol: "PER", Color: "#f00"}}
		got, changed, err := one.Reorder([]string{"PER"})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, one, got)
	})
}

func TestTagSetLookups(t *testing.T) {
	s := sampleTags()
	assert.True(t, s.Has("ORG"))
	assert.False(t, s.Has("O"))

	def, ok := s.Find("LOC")
	assert.True(t, ok)
	assert.Equal(t, "Location", def.Name)

	_, ok = TagSet(nil).Find("LOC")
	assert.False(t, ok)
	assert.Empty(t, TagSet(nil).Symbols())
}

func TestPlaceholderSpans(t *testing.T) {
	item := &DatasetItem{Content: "John runs"}
	assert.Equal(t, []Span{{Length: 9, Symbol: "O"}}, PlaceholderSpans(item.ContentLength()))
}
