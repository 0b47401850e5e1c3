package engine

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"
)

// sortKey is a cell prepared for comparison.
type sortKey struct {
	numeric bool
	num     float64
	text    string
}

// parseNumber reports whether the trimmed text is a number. NaN is not a number;
// out-of-range values count as ±Inf.
func parseNumber(text string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		var ne *strconv.NumError
		if !errors.As(err, &ne) || !errors.Is(ne.Err, strconv.ErrRange) {
			return 0, false
		}
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func keyOf(text string) sortKey {
	if f, ok := parseNumber(text); ok {
		return sortKey{numeric: true, num: f, text: text}
	}
	return sortKey{text: text}
}

// compareKeys orders numbers before text. Numbers compare by value and text
// (including empty and missing cells) by bytes.
func compareKeys(a, b sortKey) int {
	switch {
	case a.numeric && b.numeric:
		return cmp.Compare(a.num, b.num)
	case a.numeric:
		return -1
	case b.numeric:
		return 1
	default:
		return strings.Compare(a.text, b.text)
	}
}

// Sort returns view reordered ascending by column. Equal cells keep their
// relative order. view itself is not modified.
func Sort(cs *ColumnStore, view View, column string) View {
	type keyed struct {
		row int
		key sortKey
	}
	items := make([]keyed, len(view))
	for i, row := range view {
		items[i] = keyed{row: row, key: keyOf(cs.Text(row, column))}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		return compareKeys(a.key, b.key)
	})

	out := make(View, len(items))
	for i, it := range items {
		out[i] = it.row
	}
	return out
}
