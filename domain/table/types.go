package table

import (
	"fmt"
	"sort"
	"strconv"

	"statflow/domain/core"
)

// Record maps a column name to a cell value. A cell is float64, string,
// or nil (missing). Every record in a Dataset carries exactly the same
// key set; missing cells are an explicit nil, never an absent key.
type Record map[string]interface{}

// Dataset is an ordered, immutable collection of uniform-schema records
// produced by ingestion. Column order and row order are significant.
// Derived values (profiles, correlation matrices) are pure functions of a
// Dataset and are safe to compute concurrently against the same instance.
type Dataset struct {
	ID        core.DatasetID `json:"id"`
	Source    string         `json:"source"` // original filename
	Columns   []string       `json:"columns"`
	Rows      []Record       `json:"rows"`
	Truncated bool           `json:"truncated"` // row ceiling reached during ingest
	CreatedAt core.Timestamp `json:"created_at"`
}

// NewDataset creates a dataset from parsed rows
func NewDataset(source string, columns []string, rows []Record) *Dataset {
	return &Dataset{
		ID:        core.DatasetID(core.NewID()),
		Source:    source,
		Columns:   columns,
		Rows:      rows,
		CreatedAt: core.Now(),
	}
}

// RowCount returns the number of data rows
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// ColumnCount returns the number of columns
func (d *Dataset) ColumnCount() int {
	return len(d.Columns)
}

// HasColumn checks whether a column exists
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns every cell of a column in row order, including nils
func (d *Dataset) Column(name string) ([]interface{}, error) {
	if !d.HasColumn(name) {
		return nil, core.NewNotFoundError("column", name)
	}
	values := make([]interface{}, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[name]
	}
	return values, nil
}

// NumericColumn returns the non-missing numeric cells of a column together
// with their original row indices. Non-numeric cells are skipped, so the
// two slices are always the same length.
func (d *Dataset) NumericColumn(name string) ([]float64, []int, error) {
	if !d.HasColumn(name) {
		return nil, nil, core.NewNotFoundError("column", name)
	}
	values := make([]float64, 0, len(d.Rows))
	indices := make([]int, 0, len(d.Rows))
	for i, row := range d.Rows {
		if num, ok := row[name].(float64); ok {
			values = append(values, num)
			indices = append(indices, i)
		}
	}
	return values, indices, nil
}

// Validate ensures the dataset is internally consistent: every record has
// exactly the column set, no more, no less.
func (d *Dataset) Validate() error {
	if len(d.Columns) == 0 {
		return core.NewValidationError("columns", "dataset has no columns")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return core.NewValidationError("rows",
				fmt.Sprintf("row %d has %d cells, expected %d", i, len(row), len(d.Columns)))
		}
		for _, col := range d.Columns {
			if _, ok := row[col]; !ok {
				return core.NewValidationError("rows",
					fmt.Sprintf("row %d is missing column %q", i, col))
			}
		}
	}
	return nil
}

// Fingerprints returns one content hash per row, in row order
func (d *Dataset) Fingerprints() []core.RowFingerprint {
	prints := make([]core.RowFingerprint, len(d.Rows))
	cells := make([]string, len(d.Columns))
	for i, row := range d.Rows {
		for j, col := range d.Columns {
			cells[j] = FormatCell(row[col])
		}
		prints[i] = core.NewRowFingerprint(cells)
	}
	return prints
}

// Equal reports whether two datasets hold the same columns and cell
// values in the same order. Identity fields (ID, timestamps) are ignored.
func (d *Dataset) Equal(other *Dataset) bool {
	if other == nil || len(d.Columns) != len(other.Columns) || len(d.Rows) != len(other.Rows) {
		return false
	}
	for i, col := range d.Columns {
		if other.Columns[i] != col {
			return false
		}
	}
	for i, row := range d.Rows {
		for _, col := range d.Columns {
			if row[col] != other.Rows[i][col] {
				return false
			}
		}
	}
	return true
}

// FormatCell renders a cell the way it is re-serialized to CSV: numbers
// in their shortest round-trip form, missing cells as the empty string.
func FormatCell(v interface{}) string {
	switch cell := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(cell, 'g', -1, 64)
	case string:
		return cell
	default:
		return fmt.Sprintf("%v", cell)
	}
}

// SortedColumns returns the column names in lexical order (helper for
// deterministic iteration where row order does not apply)
func (d *Dataset) SortedColumns() []string {
	cols := make([]string, len(d.Columns))
	copy(cols, d.Columns)
	sort.Strings(cols)
	return cols
}
