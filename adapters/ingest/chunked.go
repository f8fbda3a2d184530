package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"strconv"
	"strings"
	"time"

	"statflow/domain/core"
	"statflow/domain/table"
	"statflow/ports"

	"github.com/xuri/excelize/v2"
)

// Controller splits ingestion of large inputs into bounded row chunks.
// Chunks are strictly sequential: chunk i+1 never starts before chunk
// i's rows are appended, so the final row order matches file order. A
// chunk boundary is the only cancellation and progress point.
type Controller struct {
	config Config
}

// Result is the outcome of a chunked ingest
type Result struct {
	Dataset        *table.Dataset
	Truncated      bool // row ceiling reached, dataset is a prefix
	MemoryPressure bool // heap crossed the high-water mark at some point
	Chunks         int
}

// NewController creates a chunked ingestion controller
func NewController(config Config) *Controller {
	return &Controller{config: config}
}

// Ingest parses data chunk by chunk. progress may be nil. Cancellation is
// cooperative: when ctx is done at a chunk boundary no further chunks run
// and no dataset is returned. Reaching the row ceiling is not an error;
// the prefix dataset comes back with Truncated set.
func (c *Controller) Ingest(ctx context.Context, data []byte, filename string, sheet int, progress ports.ProgressFunc) (*Result, error) {
	format, err := fileFormat(filename)
	if err != nil {
		return nil, err
	}

	switch format {
	case "csv":
		return c.ingestCSV(ctx, data, filename, progress)
	default:
		return c.ingestWorkbook(ctx, data, filename, sheet, progress)
	}
}

func (c *Controller) ingestCSV(ctx context.Context, data []byte, filename string, progress ports.ProgressFunc) (*Result, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // ragged rows are padded, not rejected

	header, err := reader.Read()
	if err == io.EOF {
		return nil, core.ErrEmptyFile
	}
	if err != nil {
		return nil, csvParseError(err)
	}
	columns := trimHeader(header)

	// Newline count is a cheap and close row estimate for progress
	totalEstimate := bytes.Count(data, []byte{'\n'})
	if totalEstimate > 0 {
		totalEstimate--
	}

	next := func() ([]string, error) {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, csvParseError(err)
		}
		return record, nil
	}

	return c.run(ctx, filename, columns, totalEstimate, next, progress)
}

func (c *Controller) ingestWorkbook(ctx context.Context, data []byte, filename string, sheet int, progress ports.ProgressFunc) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := resolveSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	iter, err := f.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate sheet %q: %w", sheetName, err)
	}
	defer iter.Close()

	if !iter.Next() {
		return nil, core.ErrEmptyFile
	}
	header, err := iter.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	columns := trimHeader(header)

	totalEstimate := sheetRowEstimate(f, sheetName)

	next := func() ([]string, error) {
		if !iter.Next() {
			if err := iter.Error(); err != nil {
				return nil, fmt.Errorf("sheet iteration failed: %w", err)
			}
			return nil, io.EOF
		}
		cells, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		return cells, nil
	}

	return c.run(ctx, filename, columns, totalEstimate, next, progress)
}

// run drives the shared chunk loop over a row source
func (c *Controller) run(ctx context.Context, filename string, columns []string, totalEstimate int, next func() ([]string, error), progress ports.ProgressFunc) (*Result, error) {
	var (
		rows     []table.Record
		start    = time.Now()
		chunk    = 0
		pressure = false
		exhausted, truncated bool
	)

	for !exhausted && !truncated {
		// Chunk boundary: the only cancellation point
		if err := ctx.Err(); err != nil {
			log.Printf("[Ingest] %s cancelled after %d chunks", filename, chunk)
			return nil, err
		}

		appended := 0
		for appended < c.config.ChunkSize {
			cells, err := next()
			if err == io.EOF {
				exhausted = true
				break
			}
			if err != nil {
				return nil, annotateChunk(err, chunk)
			}
			rows = append(rows, coerceRow(columns, cells))
			appended++
			if len(rows) >= c.config.MaxRows {
				truncated = true
				break
			}
		}
		if appended > 0 {
			chunk++
		}

		if c.sampleMemory() {
			pressure = true
		}
		if progress != nil && appended > 0 {
			reportProgress(progress, len(rows), totalEstimate, start)
		}
	}

	if len(rows) == 0 {
		return nil, core.ErrEmptyFile
	}

	ds := table.NewDataset(filename, columns, rows)
	ds.Truncated = truncated

	if truncated {
		log.Printf("[Ingest] %s truncated at row ceiling %d", filename, c.config.MaxRows)
	}
	return &Result{
		Dataset:        ds,
		Truncated:      truncated,
		MemoryPressure: pressure,
		Chunks:         chunk,
	}, nil
}

// sampleMemory reports whether the heap is past the high-water mark
func (c *Controller) sampleMemory() bool {
	if c.config.MemoryHighWater == 0 {
		return false
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc > c.config.MemoryHighWater
}

// reportProgress fires the progress callback with a rate-based ETA
func reportProgress(progress ports.ProgressFunc, processed, totalEstimate int, start time.Time) {
	if totalEstimate < processed {
		totalEstimate = processed
	}
	percentage := 100.0
	if totalEstimate > 0 {
		percentage = float64(processed) / float64(totalEstimate) * 100
	}
	eta := 0.0
	elapsed := time.Since(start).Seconds()
	if processed > 0 && totalEstimate > processed {
		eta = elapsed / float64(processed) * float64(totalEstimate-processed)
	}
	progress(processed, totalEstimate, percentage, eta)
}

// annotateChunk attaches the chunk index to a parse failure
func annotateChunk(err error, chunk int) error {
	var pe *core.ParseError
	if errors.As(err, &pe) {
		pe.Chunk = chunk
		return pe
	}
	return err
}

// sheetRowEstimate derives a row estimate from the sheet dimension ref
// (e.g. "A1:F5001"). Zero when the dimension is unavailable.
func sheetRowEstimate(f *excelize.File, sheetName string) int {
	dim, err := f.GetSheetDimension(sheetName)
	if err != nil || dim == "" {
		return 0
	}
	parts := strings.Split(dim, ":")
	last := parts[len(parts)-1]
	digits := strings.TrimLeft(last, "ABCDEFGHIJKLMNOPQRSTUVWXYZ$")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0
	}
	return n - 1 // header
}
