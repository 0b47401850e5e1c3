package engine

import (
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"screener/internal/models"
)

// ColumnStore holds the loaded dataset column-wise in an Arrow record.
// Every header field becomes one nullable UTF-8 column; cells a row did not
// supply are stored as nulls. The store is immutable once built.
type ColumnStore struct {
	record  arrow.Record
	header  []string
	columns map[string]*array.String

	// Fingerprint is the xxh3 hash of the raw resource bytes (0 when built in memory).
	Fingerprint uint64
}

// NewColumnStore builds a store from a header and its data records.
// Duplicate header names keep their first occurrence. Short records leave the
// trailing columns null; fields beyond the header are dropped.
func NewColumnStore(header []string, records [][]string) *ColumnStore {
	var (
		names  []string
		srcIdx []int
		seen   = make(map[string]bool, len(header))
	)
	for i, h := range header {
		if seen[h] {
			continue
		}
		seen[h] = true
		names = append(names, h)
		srcIdx = append(srcIdx, i)
	}

	fields := make([]arrow.Field, len(names))
	for i, n := range names {
		fields[i] = arrow.Field{Name: n, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	for _, rec := range records {
		for i, src := range srcIdx {
			fb := b.Field(i).(*array.StringBuilder)
			if src < len(rec) {
				fb.Append(rec[src])
			} else {
				fb.AppendNull()
			}
		}
	}

	cs := &ColumnStore{
		record:  b.NewRecord(),
		header:  names,
		columns: make(map[string]*array.String, len(names)),
	}
	for i, n := range names {
		cs.columns[n] = cs.record.Column(i).(*array.String)
	}
	return cs
}

// Len returns the number of rows.
func (cs *ColumnStore) Len() int {
	return int(cs.record.NumRows())
}

// Header returns the column names in file order.
func (cs *ColumnStore) Header() []string {
	return append([]string(nil), cs.header...)
}

// HasColumn reports whether the file supplied the column.
func (cs *ColumnStore) HasColumn(column string) bool {
	_, ok := cs.columns[column]
	return ok
}

// Value returns the cell at (row, column). ok is false when the column is absent
// from the file or the row did not supply the cell.
func (cs *ColumnStore) Value(row int, column string) (v string, ok bool) {
	col, exists := cs.columns[column]
	if !exists || col.IsNull(row) {
		return "", false
	}
	return col.Value(row), true
}

// Text returns the cell as text, "" when missing.
func (cs *ColumnStore) Text(row int, column string) string {
	v, _ := cs.Value(row, column)
	return v
}

// Row materializes one row. Missing cells are left out of the map.
func (cs *ColumnStore) Row(row int) models.Row {
	r := make(models.Row, len(cs.header))
	for _, n := range cs.header {
		if v, ok := cs.Value(row, n); ok {
			r[n] = v
		}
	}
	return r
}

// Release frees the Arrow buffers. The store must not be used afterwards.
func (cs *ColumnStore) Release() {
	cs.record.Release()
}
