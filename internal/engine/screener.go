package engine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/samber/lo"

	"screener/internal/models"
)

// Screener owns the dataset, the current filters and the displayed view.
// It is not safe for concurrent use.
type Screener struct {
	dataset    *ColumnStore
	filters    FilterSet
	view       View
	sortColumn string
}

// NewScreener starts with empty filters and every row displayed.
func NewScreener(ds *ColumnStore) *Screener {
	return &Screener{
		dataset: ds,
		filters: NewFilterSet(),
		view:    AllRows(ds.Len()),
	}
}

func (s *Screener) Dataset() *ColumnStore { return s.dataset }

// Filters returns a copy of the current FilterSet.
func (s *Screener) Filters() FilterSet { return maps.Clone(s.filters) }

// View returns a copy of the displayed row indices.
func (s *Screener) View() View { return slices.Clone(s.view) }

// SortColumn is the column of the last sort, "" after a refilter.
func (s *Screener) SortColumn() string { return s.sortColumn }

// ApplyFilters recomputes the view from the whole dataset. Absent keys are
// treated as "". Any sort order is dropped.
func (s *Screener) ApplyFilters(fs FilterSet) error {
	full, err := fs.Complete()
	if err != nil {
		return err
	}
	s.filters = full
	s.view = Filter(s.dataset, full)
	s.sortColumn = ""
	return nil
}

// SetFilter changes one filter and refilters.
func (s *Screener) SetFilter(column, value string) error {
	if !IsFilterColumn(column) {
		return fmt.Errorf("filter %q: %w", column, ErrUnknownColumn)
	}
	return s.ApplyFilters(s.filters.With(column, value))
}

// HandleSort reorders the current view ascending by column.
func (s *Screener) HandleSort(column string) error {
	if !IsFilterColumn(column) {
		return fmt.Errorf("sort %q: %w", column, ErrUnknownColumn)
	}
	s.view = Sort(s.dataset, s.view, column)
	s.sortColumn = column
	return nil
}

// Rows materializes the view for display. Missing cells render as "".
func (s *Screener) Rows() []models.ViewRow {
	return lo.Map(s.view, func(row int, i int) models.ViewRow {
		cells := make(map[string]string, len(FilterColumns))
		for _, c := range FilterColumns {
			cells[c] = s.dataset.Text(row, c)
		}
		return models.ViewRow{
			SNo:   i + 1,
			Index: row,
			Name:  s.dataset.Text(row, NameColumn),
			Cells: cells,
		}
	})
}

// Response builds the JSON view payload.
func (s *Screener) Response() models.ViewResponse {
	return models.ViewResponse{
		Columns:    slices.Clone(FilterColumns),
		Filters:    s.Filters(),
		SortColumn: s.sortColumn,
		Total:      s.dataset.Len(),
		Visible:    len(s.view),
		Rows:       s.Rows(),
	}
}
