package engine

import (
	"fmt"
	"maps"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// FilterSet maps every filterable column to its filter text. An unset filter is
// the empty string, never a missing key.
type FilterSet map[string]string

// NewFilterSet returns a FilterSet with all nine columns set to "".
func NewFilterSet() FilterSet {
	fs := make(FilterSet, len(FilterColumns))
	for _, c := range FilterColumns {
		fs[c] = ""
	}
	return fs
}

// Complete returns a full copy of fs with absent columns set to "".
// Keys outside FilterColumns are rejected.
func (fs FilterSet) Complete() (FilterSet, error) {
	out := NewFilterSet()
	for k, v := range fs {
		if !IsFilterColumn(k) {
			return nil, fmt.Errorf("filter %q: %w", k, ErrUnknownColumn)
		}
		out[k] = v
	}
	return out, nil
}

// With returns a copy of fs with one column changed.
func (fs FilterSet) With(column, value string) FilterSet {
	out := maps.Clone(fs)
	out[column] = value
	return out
}

// Empty reports whether no filter has any text.
func (fs FilterSet) Empty() bool {
	for _, v := range fs {
		if v != "" {
			return false
		}
	}
	return true
}

// View is the displayed sequence of dataset row indices.
type View []int

// AllRows is the unfiltered view of n rows in dataset order.
func AllRows(n int) View {
	v := make(View, n)
	for i := range v {
		v[i] = i
	}
	return v
}

// Filter returns the dataset rows whose cells contain the filter text of every
// column in fs, ignoring case. Missing cells read as "". The result keeps
// dataset order and is always computed from the whole dataset.
func Filter(cs *ColumnStore, fs FilterSet) View {
	fold := cases.Fold()

	needles := make(map[string]string, len(fs))
	for col, text := range fs {
		if text != "" {
			needles[col] = fold.String(text)
		}
	}

	all := AllRows(cs.Len())
	if len(needles) == 0 {
		return all
	}
	return lo.Filter(all, func(row int, _ int) bool {
		for col, needle := range needles {
			if !strings.Contains(fold.String(cs.Text(row, col)), needle) {
				return false
			}
		}
		return true
	})
}
