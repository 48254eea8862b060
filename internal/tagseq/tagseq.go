// Package tagseq checks that a labeling is an exhaustive partition of an
// item's content into contiguous spans with legal symbols.
//
// Rules are applied in order and each rule is checked across every span
// before the next one runs, so the first failing rule is the one reported:
//
//  1. at least one span, each an object with exactly "length" and "symbol"
//  2. every length is a strictly positive integer
//  3. every symbol is "O" or defined in the vocabulary
//  4. the lengths sum to the content length
//  5. relation tags are an array of strings
//
// Valid spans are returned exactly as submitted; adjacent spans with the
// same symbol are not merged.
package tagseq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// Vocabulary is the set of symbols a labeling may use besides "O".
// domain.TagSet satisfies it.
type Vocabulary interface {
	Has(symbol string) bool
}

// Symbols is a Vocabulary backed by a set
type Symbols map[string]struct{}

// NewSymbols builds a Symbols set
func NewSymbols(symbols ...string) Symbols {
	s := make(Symbols, len(symbols))
	for _, sym := range symbols {
		s[sym] = struct{}{}
	}
	return s
}

// Has implements Vocabulary
func (s Symbols) Has(symbol string) bool {
	_, ok := s[symbol]
	return ok
}

// Validate checks typed spans against vocab and contentLength
func Validate(vocab Vocabulary, contentLength int, spans []domain.Span, relationTags []string) ([]domain.Span, error) {
	if len(spans) == 0 {
		return nil, fail(-1, "tags must contain at least one span")
	}

	for i, s := range spans {
		if s.Length <= 0 {
			return nil, fail(i, "length must be a positive integer")
		}
	}

	if err := checkSymbols(vocab, spans); err != nil {
		return nil, err
	}

	if err := checkTotal(contentLength, spans); err != nil {
		return nil, err
	}

	return spans, nil
}

// ValidateJSON checks spans and relation tags exactly as they arrived on the
// wire. An absent or null rawRelationTags is an empty list.
func ValidateJSON(vocab Vocabulary, contentLength int, rawSpans, rawRelationTags json.RawMessage) ([]domain.Span, []string, error) {
	// Rule 1: shape
	var elems []json.RawMessage
	if isNull(rawSpans) || json.Unmarshal(rawSpans, &elems) != nil {
		return nil, nil, fail(-1, "tags must be an array of spans")
	}
	if len(elems) == 0 {
		return nil, nil, fail(-1, "tags must contain at least one span")
	}

	fields := make([]map[string]json.RawMessage, len(elems))
	for i, e := range elems {
		var m map[string]json.RawMessage
		if isNull(e) || json.Unmarshal(e, &m) != nil {
			return nil, nil, fail(i, "span must be an object")
		}
		_, hasLength := m["length"]
		_, hasSymbol := m["symbol"]
		if len(m) != 2 || !hasLength || !hasSymbol {
			return nil, nil, fail(i, `span must have exactly the fields "length" and "symbol"`)
		}
		fields[i] = m
	}

	// Rule 2: lengths
	spans := make([]domain.Span, len(elems))
	for i, m := range fields {
		n, ok := parseLength(m["length"])
		if !ok {
			return nil, nil, fail(i, "length must be a positive integer")
		}
		spans[i].Length = n
	}

	// Rule 3: symbols
	for i, m := range fields {
		var sym string
		if isNull(m["symbol"]) || json.Unmarshal(m["symbol"], &sym) != nil {
			return nil, nil, fail(i, "symbol must be a string")
		}
		spans[i].Symbol = sym
	}
	if err := checkSymbols(vocab, spans); err != nil {
		return nil, nil, err
	}

	// Rule 4: coverage
	if err := checkTotal(contentLength, spans); err != nil {
		return nil, nil, err
	}

	// Rule 5: relation tags
	relationTags := []string{}
	if !isNull(rawRelationTags) {
		if err := json.Unmarshal(rawRelationTags, &relationTags); err != nil || relationTags == nil {
			return nil, nil, fail(-1, "relation tags must be an array of strings")
		}
	}

	return spans, relationTags, nil
}

func checkSymbols(vocab Vocabulary, spans []domain.Span) error {
	for i, s := range spans {
		if s.Symbol == domain.ReservedSymbol {
			continue
		}
		if vocab == nil || !vocab.Has(s.Symbol) {
			return fail(i, fmt.Sprintf("unknown symbol %q", s.Symbol))
		}
	}
	return nil
}

func checkTotal(contentLength int, spans []domain.Span) error {
	total := 0
	for _, s := range spans {
		total += s.Length
	}
	if total != contentLength {
		return fail(-1, fmt.Sprintf("span lengths sum to %d but content length is %d", total, contentLength))
	}
	return nil
}

// parseLength accepts a JSON number with an integral value greater than zero
func parseLength(raw json.RawMessage) (int, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}

	if n, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
		if n <= 0 || n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	}

	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func fail(index int, reason string) *apperrors.AppError {
	if index < 0 {
		return apperrors.Validation(reason)
	}
	return apperrors.Validation(fmt.Sprintf("span %d: %s", index, reason)).
		WithDetail("span", strconv.Itoa(index))
}
