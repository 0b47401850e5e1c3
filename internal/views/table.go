// Package views renders the screener page and its table fragments as templ components.
package views

import (
	"encoding/json"
	"strconv"

	"screener/internal/models"
)

// TableData is everything the page needs to render.
type TableData struct {
	Loaded     bool
	Columns    []string
	Filters    map[string]string
	SortColumn string
	Rows       []models.ViewRow
}

// span is the column count: S.No, Name and the metrics.
func (d TableData) span() int { return len(d.Columns) + 2 }

func columnVals(column string) string {
	b, _ := json.Marshal(map[string]string{"column": column})
	return string(b)
}

func filterID(i int) string { return "filter-" + strconv.Itoa(i) }

const stylesheet = `
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0; padding: 1rem; }
.container { max-width: 1400px; margin: 0 auto; }
.title { font-size: 1.5rem; }
.filters { display: flex; flex-wrap: wrap; gap: .5rem; margin-bottom: 1rem; }
.filter-input label { display: block; font-size: .75rem; }
.filter-input input { padding: .25rem .5rem; }
.data-table { width: 100%; border-collapse: collapse; font-size: .8125rem; }
.data-table th, .data-table td { padding: .4rem .6rem; border-bottom: 1px solid #dee2e6; text-align: left; }
.data-table th { cursor: pointer; white-space: nowrap; }
.data-table th.sorted { text-decoration: underline; }
`
