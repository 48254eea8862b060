package domain

import (
	"fmt"
	"strings"
	"unicode"

	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// ReservedSymbol marks text that carries no label
const ReservedSymbol = "O"

// TagDef is one label class of a task
type TagDef struct {
	Name   string `json:"name" validate:"required"`
	Symbol string `json:"symbol" validate:"required"`
	Color  string `json:"color" validate:"required"`
}

// TagSet is the ordered label vocabulary of a task.
// Transforms never modify the receiver.
type TagSet []TagDef

// Has reports whether symbol is defined in the set
func (s TagSet) Has(symbol string) bool {
	_, ok := s.index(symbol)
	return ok
}

// Find returns the tag with the given symbol
func (s TagSet) Find(symbol string) (TagDef, bool) {
	i, ok := s.index(symbol)
	if !ok {
		return TagDef{}, false
	}
	return s[i], true
}

// Symbols returns the symbols in order
func (s TagSet) Symbols() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = t.Symbol
	}
	return out
}

// Add appends a new tag
func (s TagSet) Add(def TagDef) (TagSet, error) {
	if def.Name == "" {
		return nil, apperrors.InvalidArgument("tag name is required")
	}
	if def.Symbol == "" {
		return nil, apperrors.InvalidArgument("tag symbol is required")
	}
	if def.Color == "" {
		return nil, apperrors.InvalidArgument("tag color is required")
	}
	if strings.IndexFunc(def.Symbol, unicode.IsSpace) >= 0 {
		return nil, apperrors.InvalidArgument("tag symbol must not contain whitespace")
	}
	if def.Symbol == ReservedSymbol {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("tag symbol %q is reserved", ReservedSymbol))
	}
	if s.Has(def.Symbol) {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("tag symbol %q already exists", def.Symbol))
	}

	out := make(TagSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, def), nil
}

// Modify changes the name and color of an existing tag. The symbol is immutable.
func (s TagSet) Modify(symbol, name, color string) (TagSet, error) {
	if name == "" {
		return nil, apperrors.InvalidArgument("tag name is required")
	}
	if color == "" {
		return nil, apperrors.InvalidArgument("tag color is required")
	}
	i, ok := s.index(symbol)
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("tag %q", symbol))
	}

	out := s.clone()
	out[i].Name = name
	out[i].Color = color
	return out, nil
}

// Remove drops the tag with the given symbol. Removing an absent symbol
// returns the set unchanged and changed=false.
func (s TagSet) Remove(symbol string) (out TagSet, changed bool, err error) {
	if symbol == "" {
		return nil, false, apperrors.InvalidArgument("tag symbol is required")
	}
	i, ok := s.index(symbol)
	if !ok {
		return s, false, nil
	}

	out = make(TagSet, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out, true, nil
}

// Reorder returns the tags arranged in the order of symbols, which must be
// a permutation of the current symbols.
func (s TagSet) Reorder(symbols []string) (out TagSet, changed bool, err error) {
	if symbols == nil {
		return nil, false, apperrors.InvalidArgument("symbols are required")
	}

	out = make(TagSet, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		def, ok := s.Find(sym)
		if !ok {
			return nil, false, apperrors.NotFound(fmt.Sprintf("tag %q", sym))
		}
		if _, dup := seen[sym]; dup {
			return nil, false, apperrors.InvalidArgument(fmt.Sprintf("symbol %q listed more than once", sym))
		}
		seen[sym] = struct{}{}
		out = append(out, def)
	}
	if len(out) != len(s) {
		return nil, false, apperrors.InvalidArgument("symbols must list every tag of the task exactly once")
	}

	for i := range s {
		if s[i].Symbol != out[i].Symbol {
			return out, true, nil
		}
	}
	return out, false, nil
}

func (s TagSet) index(symbol string) (int, bool) {
	for i, t := range s {
		if t.Symbol == symbol {
			return i, true
		}
	}
	return -1, false
}

func (s TagSet) clone() TagSet {
	out := make(TagSet, len(s))
	copy(out, s)
	return out
}
