package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV re-serializes the dataset as standard CSV: header row first,
// numbers in shortest round-trip form, missing cells empty. Parsing the
// output yields an Equal dataset (numeric-looking strings coerce back to
// numbers either way).
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cells := make([]string, len(d.Columns))
	for i, row := range d.Rows {
		for j, col := range d.Columns {
			cells[j] = FormatCell(row[col])
		}
		if err := cw.Write(cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
