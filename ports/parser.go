package ports

import (
	"context"
	"io"

	"statflow/domain/table"
)

// SheetInfo describes one sheet of a spreadsheet workbook
type SheetInfo struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
}

// ParserPort turns raw file content into a Dataset. Implementations are
// pure transforms: no side effects beyond reading src.
type ParserPort interface {
	// Parse reads the named file content. sheet selects the workbook
	// sheet for spreadsheet input and is ignored for CSV. Fails with
	// core.ErrSheetRequired when a multi-sheet workbook is parsed
	// without an explicit selection.
	Parse(ctx context.Context, src io.Reader, filename string, sheet int) (*table.Dataset, error)

	// ListSheets returns the ordered sheet inventory of a workbook.
	// CSV input yields a single synthetic entry.
	ListSheets(ctx context.Context, src io.Reader, filename string) ([]SheetInfo, error)
}

// ProgressFunc is invoked after each ingested chunk
type ProgressFunc func(processedRows, totalRows int, percentage float64, etaSeconds float64)
