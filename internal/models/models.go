package models

// Row is one dataset record keyed by column name. Cells the file did not
// supply are absent from the map.
type Row map[string]string

// ViewRow is one displayed row.
type ViewRow struct {
	SNo   int               `json:"sno"`   // 1-based position in the current view
	Index int               `json:"index"` // 0-based position in the dataset
	Name  string            `json:"name"`
	Cells map[string]string `json:"cells"`
}

type ViewResponse struct {
	Columns    []string          `json:"columns"`
	Filters    map[string]string `json:"filters"`
	SortColumn string            `json:"sort_column,omitempty"`
	Total      int               `json:"total"`
	Visible    int               `json:"visible"`
	Rows       []ViewRow         `json:"rows"`
}

type Status struct {
	Loaded      bool   `json:"loaded"`
	Rows        int    `json:"rows"`
	Visible     int    `json:"visible"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// FilterUpdate changes a single filter, one keystroke at a time.
type FilterUpdate struct {
	Column string `json:"column" form:"column"`
	Value  string `json:"value" form:"value"`
}

type SortRequest struct {
	Column string `json:"column" form:"column"`
}
