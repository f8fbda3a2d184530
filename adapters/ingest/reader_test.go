package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"statflow/domain/core"
	"statflow/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCoerceCell(t *testing.T) {
	cases := []struct {
		raw  string
		want interface{}
	}{
		{"", nil},
		{"   ", nil},
		{"3.14", 3.14},
		{"-7", -7.0},
		{"1e3", 1000.0},
		{" 42 ", 42.0},
		{"abc", "abc"},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"12abc", "12abc"},
	}
	for _, c := range cases {
		if got := CoerceCell(c.raw); got != c.want {
			t.Fatalf("CoerceCell(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestParseCSVHeaderAndRows(t *testing.T) {
	src := strings.NewReader("name,age,score\nalice,30,91.5\nbob,25,87\n")
	p := NewParser(DefaultConfig())

	ds, err := p.Parse(context.Background(), src, "people.csv", -1)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "score"}, ds.Columns)
	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, "alice", ds.Rows[0]["name"])
	assert.Equal(t, 30.0, ds.Rows[0]["age"])
	assert.Equal(t, 91.5, ds.Rows[0]["score"])
}

func TestParseCSVShortAndLongRows(t *testing.T) {
	// ragged rows: short rows pad with nil, extra cells drop
	src := strings.NewReader("a,b,c\n1,2\n1,2,3,4\n")
	p := NewParser(DefaultConfig())

	ds, err := p.Parse(context.Background(), src, "ragged.csv", -1)
	require.NoError(t, err)
	require.Equal(t, 2, ds.RowCount())

	assert.Nil(t, ds.Rows[0]["c"])
	assert.Equal(t, 3.0, ds.Rows[1]["c"])
	assert.Len(t, ds.Rows[1], 3)
}

func TestParseEmptyInputs(t *testing.T) {
	p := NewParser(DefaultConfig())

	_, err := p.Parse(context.Background(), strings.NewReader(""), "empty.csv", -1)
	assert.ErrorIs(t, err, core.ErrEmptyFile)

	// header only, zero data rows
	_, err = p.Parse(context.Background(), strings.NewReader("a,b\n"), "header.csv", -1)
	assert.ErrorIs(t, err, core.ErrEmptyFile)
}

func TestParseUnsupportedFormat(t *testing.T) {
	p := NewParser(DefaultConfig())
	_, err := p.Parse(context.Background(), strings.NewReader("x"), "data.parquet", -1)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestParseMalformedCSVCarriesLine(t *testing.T) {
	src := strings.NewReader("a,b\n1,2\n\"broken\n")
	p := NewParser(DefaultConfig())

	_, err := p.Parse(context.Background(), src, "broken.csv", -1)
	require.Error(t, err)

	var parseErr *core.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Greater(t, parseErr.Line, 0)
}

func buildWorkbook(t *testing.T, sheets map[string][][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParseWorkbookSingleSheet(t *testing.T) {
	data := buildWorkbook(t, map[string][][]interface{}{
		"data": {
			{"x", "y"},
			{1, "a"},
			{2, "b"},
		},
	})
	p := NewParser(DefaultConfig())

	ds, err := p.Parse(context.Background(), bytes.NewReader(data), "book.xlsx", -1)
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y"}, ds.Columns)
	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, 1.0, ds.Rows[0]["x"])
	assert.Equal(t, "a", ds.Rows[0]["y"])
}

func TestParseWorkbookSheetSelection(t *testing.T) {
	data := buildWorkbook(t, map[string][][]interface{}{
		"first":  {{"a"}, {1}},
		"second": {{"b"}, {2}},
	})
	p := NewParser(DefaultConfig())

	// multi-sheet workbook without an explicit sheet index
	_, err := p.Parse(context.Background(), bytes.NewReader(data), "book.xlsx", -1)
	assert.ErrorIs(t, err, core.ErrSheetRequired)

	// out of range
	_, err = p.Parse(context.Background(), bytes.NewReader(data), "book.xlsx", 9)
	assert.ErrorIs(t, err, core.ErrSheetNotFound)

	ds, err := p.Parse(context.Background(), bytes.NewReader(data), "book.xlsx", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.ColumnCount())
}

func TestListSheets(t *testing.T) {
	data := buildWorkbook(t, map[string][][]interface{}{
		"only": {
			{"x", "y", "z"},
			{1, 2, 3},
			{4, 5, 6},
		},
	})
	p := NewParser(DefaultConfig())

	sheets, err := p.ListSheets(context.Background(), bytes.NewReader(data), "book.xlsx")
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "only", sheets[0].Name)
	assert.Equal(t, 2, sheets[0].RowCount)
	assert.Equal(t, 3, sheets[0].ColumnCount)
}

func TestListSheetsCSV(t *testing.T) {
	p := NewParser(DefaultConfig())
	sheets, err := p.ListSheets(context.Background(), strings.NewReader("a,b\n1,2\n3,4\n"), "flat.csv")
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, 2, sheets[0].RowCount)
	assert.Equal(t, 2, sheets[0].ColumnCount)
}

func TestChunkedTruncation(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("v\n")
	for i := 0; i < 500; i++ {
		buf.WriteString("1\n")
	}

	cfg := DefaultConfig()
	cfg.ChunkSize = 100
	cfg.MaxRows = 300
	c := NewController(cfg)

	res, err := c.Ingest(context.Background(), buf.Bytes(), "big.csv", -1, nil)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.True(t, res.Dataset.Truncated)
	assert.Equal(t, 300, res.Dataset.RowCount())
	assert.Equal(t, 3, res.Chunks)
}

func TestChunkedCancellationBetweenChunks(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("v\n")
	for i := 0; i < 1000; i++ {
		buf.WriteString("1\n")
	}

	cfg := DefaultConfig()
	cfg.ChunkSize = 100
	c := NewController(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	var once bool
	progress := func(processed, total int, pct, eta float64) {
		if !once {
			once = true
			cancel()
		}
	}

	res, err := c.Ingest(ctx, buf.Bytes(), "big.csv", -1, progress)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestChunkedPreservesRowOrder(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("i\n")
	for i := 0; i < 250; i++ {
		buf.WriteString(table.FormatCell(float64(i)) + "\n")
	}

	cfg := DefaultConfig()
	cfg.ChunkSize = 64
	c := NewController(cfg)

	res, err := c.Ingest(context.Background(), buf.Bytes(), "ordered.csv", -1, nil)
	require.NoError(t, err)
	require.Equal(t, 250, res.Dataset.RowCount())
	for i, row := range res.Dataset.Rows {
		require.Equal(t, float64(i), row["i"])
	}
}

func TestChunkedWorkbook(t *testing.T) {
	rows := [][]interface{}{{"x"}}
	for i := 1; i <= 120; i++ {
		rows = append(rows, []interface{}{i})
	}
	data := buildWorkbook(t, map[string][][]interface{}{"data": rows})

	cfg := DefaultConfig()
	cfg.ChunkSize = 50
	c := NewController(cfg)

	res, err := c.Ingest(context.Background(), data, "book.xlsx", -1, nil)
	require.NoError(t, err)
	assert.Equal(t, 120, res.Dataset.RowCount())
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 1.0, res.Dataset.Rows[0]["x"])
}
