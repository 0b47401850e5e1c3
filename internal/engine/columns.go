package engine

import (
	"errors"
	"slices"
)

// NameColumn holds the company name. It is displayed but never filtered or sorted.
const NameColumn = "Name"

// FilterColumns are the metric columns, in display order. Header names in the CSV
// must match these exactly.
var FilterColumns = []string{
	"CMP (Rs.)",
	"P/E",
	"Mar Cap (Rs. Cr.)",
	"Div Yld (%)",
	"NP Qtr (Rs. Cr.)",
	"Qtr Profit Var (%)",
	"Sales Qtr (Rs. Cr.)",
	"Qtr Sales Var (%)",
	"ROCE (%)",
}

var (
	// ErrUnknownColumn is returned when a filter or sort names a column outside FilterColumns.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNotLoaded is returned while the dataset has not finished loading.
	ErrNotLoaded = errors.New("dataset not loaded")
)

// IsFilterColumn reports whether column is one of the nine metric columns.
func IsFilterColumn(column string) bool {
	return slices.Contains(FilterColumns, column)
}
