package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"statflow/domain/core"
	"statflow/domain/table"
	"statflow/ports"

	"github.com/xuri/excelize/v2"
)

// Parser reads CSV and xlsx content into Datasets. It implements
// ports.ParserPort and is a pure transform of bytes to rows.
type Parser struct {
	config Config
}

// NewParser creates a parser with the given limits
func NewParser(config Config) *Parser {
	return &Parser{config: config}
}

// fileFormat classifies a filename by extension
func fileFormat(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "csv", nil
	case ".xlsx", ".xlsm":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Parse reads the full content of src into a Dataset. sheet selects the
// workbook sheet (0-based) and is ignored for CSV; pass a negative sheet
// to request the default, which is only legal for single-sheet workbooks.
func (p *Parser) Parse(ctx context.Context, src io.Reader, filename string, sheet int) (*table.Dataset, error) {
	format, err := fileFormat(filename)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var ds *table.Dataset
	switch format {
	case "csv":
		ds, err = p.parseCSV(src, filename)
	case "xlsx":
		ds, err = p.parseWorkbook(src, filename, sheet)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[Ingest] %s parsed (%d columns, %d rows) in %.2fms",
		filename, ds.ColumnCount(), ds.RowCount(), float64(time.Since(start).Nanoseconds())/1e6)
	return ds, nil
}

// parseCSV reads comma-delimited text with standard quoting. The first
// row is the header; malformed rows surface a ParseError with the line.
func (p *Parser) parseCSV(src io.Reader, filename string) (*table.Dataset, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1 // ragged rows are padded, not rejected

	header, err := reader.Read()
	if err == io.EOF {
		return nil, core.ErrEmptyFile
	}
	if err != nil {
		return nil, csvParseError(err)
	}
	columns := trimHeader(header)

	var rows []table.Record
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvParseError(err)
		}
		rows = append(rows, coerceRow(columns, record))
	}

	if len(rows) == 0 {
		return nil, core.ErrEmptyFile
	}
	return table.NewDataset(filename, columns, rows), nil
}

// parseWorkbook reads one sheet of an xlsx workbook
func (p *Parser) parseWorkbook(src io.Reader, filename string, sheet int) (*table.Dataset, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := resolveSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	raw, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	if len(raw) < 2 {
		return nil, core.ErrEmptyFile
	}

	columns := trimHeader(raw[0])
	rows := make([]table.Record, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		rows = append(rows, coerceRow(columns, cells))
	}
	return table.NewDataset(filename, columns, rows), nil
}

// ListSheets returns the ordered sheet inventory. CSV input yields one
// synthetic entry so callers can treat both formats uniformly.
func (p *Parser) ListSheets(ctx context.Context, src io.Reader, filename string) ([]ports.SheetInfo, error) {
	format, err := fileFormat(filename)
	if err != nil {
		return nil, err
	}

	if format == "csv" {
		reader := csv.NewReader(src)
		reader.FieldsPerRecord = -1
		cols, rows := 0, 0
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, csvParseError(err)
			}
			if rows == 0 {
				cols = len(record)
			}
			rows++
		}
		if rows > 0 {
			rows-- // header
		}
		return []ports.SheetInfo{{Index: 0, Name: filename, RowCount: rows, ColumnCount: cols}}, nil
	}

	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	infos := make([]ports.SheetInfo, 0, len(names))
	for i, name := range names {
		raw, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		rows, cols := len(raw), 0
		if rows > 0 {
			cols = len(raw[0])
			rows--
		}
		infos = append(infos, ports.SheetInfo{Index: i, Name: name, RowCount: rows, ColumnCount: cols})
	}
	return infos, nil
}

// resolveSheet maps a requested sheet index to a sheet name. A negative
// index means "default", which requires a single-sheet workbook.
func resolveSheet(f *excelize.File, sheet int) (string, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return "", core.ErrEmptyFile
	}
	if sheet < 0 {
		if len(names) > 1 {
			return "", fmt.Errorf("%w: workbook has %d sheets", core.ErrSheetRequired, len(names))
		}
		return names[0], nil
	}
	if sheet >= len(names) {
		return "", fmt.Errorf("%w: index %d of %d", core.ErrSheetNotFound, sheet, len(names))
	}
	return names[sheet], nil
}

// trimHeader normalizes column names
func trimHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}
	return columns
}

// coerceRow builds a Record from raw cells. Short rows pad with nil so
// the uniform-schema invariant holds; cells past the header are dropped.
func coerceRow(columns []string, cells []string) table.Record {
	row := make(table.Record, len(columns))
	for i, col := range columns {
		if i < len(cells) {
			row[col] = CoerceCell(cells[i])
		} else {
			row[col] = nil
		}
	}
	return row
}

// CoerceCell converts one raw cell: empty becomes nil, unambiguous
// numbers become float64, everything else stays a string. NaN and Inf
// spellings are kept as strings since they are not unambiguous data.
func CoerceCell(raw string) interface{} {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil
	}
	if num, err := strconv.ParseFloat(cleaned, 64); err == nil {
		if math.IsNaN(num) || math.IsInf(num, 0) {
			return cleaned
		}
		return num
	}
	return cleaned
}

// csvParseError converts a csv.ParseError into the domain form with the
// offending line number attached
func csvParseError(err error) error {
	var ce *csv.ParseError
	if errors.As(err, &ce) {
		return core.NewParseError(ce.Line, ce.Err)
	}
	return core.NewParseError(0, err)
}
