package table_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"statflow/adapters/ingest"
	"statflow/domain/core"
	"statflow/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *table.Dataset {
	return table.NewDataset("sample.csv", []string{"x", "name"}, []table.Record{
		{"x": 1.5, "name": "a"},
		{"x": nil, "name": "b"},
		{"x": 3.0, "name": "a"},
	})
}

func TestColumnAccess(t *testing.T) {
	ds := sample()

	values, err := ds.Column("x")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.5, nil, 3.0}, values)

	_, err = ds.Column("missing")
	assert.True(t, core.IsNotFoundError(err))
}

func TestNumericColumnSkipsNonNumeric(t *testing.T) {
	ds := sample()

	nums, rows, err := ds.NumericColumn("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 3.0}, nums)
	assert.Equal(t, []int{0, 2}, rows)

	// an all-string column yields empty slices, not an error
	nums, rows, err = ds.NumericColumn("name")
	require.NoError(t, err)
	assert.Empty(t, nums)
	assert.Empty(t, rows)
}

func TestValidateUniformSchema(t *testing.T) {
	ds := sample()
	require.NoError(t, ds.Validate())

	ds.Rows = append(ds.Rows, table.Record{"x": 1.0})
	assert.Error(t, ds.Validate())
}

func TestFingerprintsDetectSameContent(t *testing.T) {
	a := sample()
	b := sample()

	// different IDs and timestamps, identical content
	assert.Equal(t, a.Fingerprints(), b.Fingerprints())
	assert.True(t, a.Equal(b))

	b.Rows[1]["name"] = "changed"
	assert.NotEqual(t, a.Fingerprints(), b.Fingerprints())
	assert.False(t, a.Equal(b))
}

func TestFingerprintSeparatorAmbiguity(t *testing.T) {
	joined := core.NewRowFingerprint([]string{"a,b"})
	split := core.NewRowFingerprint([]string{"a", "b"})
	if joined == split {
		t.Fatal("cells [a,b] and [a|b] must fingerprint differently")
	}
}

func TestFormatCell(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{1.5, "1.5"},
		{3.0, "3"},
		{0.1, "0.1"},
		{"text", "text"},
	}
	for _, c := range cases {
		if got := table.FormatCell(c.in); got != c.want {
			t.Fatalf("FormatCell(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	ds := sample()

	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "x,name\n"))

	parsed, err := ingest.NewParser(ingest.DefaultConfig()).
		Parse(context.Background(), strings.NewReader(out), "roundtrip.csv", -1)
	require.NoError(t, err)
	assert.True(t, ds.Equal(parsed))
}

func TestImputeNumericMean(t *testing.T) {
	ds := sample()
	profiles := map[string]*table.ColumnStatistics{
		"x": {
			Name:    "x",
			Type:    table.TypeNumeric,
			Count:   2,
			Numeric: &table.NumericSummary{Mean: 2.25},
		},
	}

	imputed := table.Impute(ds, profiles)
	assert.Equal(t, 2.25, imputed.Rows[1]["x"])

	// source untouched
	assert.Nil(t, ds.Rows[1]["x"])
}

func TestImputeCategoricalMode(t *testing.T) {
	ds := table.NewDataset("c.csv", []string{"c"}, []table.Record{
		{"c": "a"}, {"c": nil}, {"c": "a"}, {"c": "b"},
	})
	profiles := map[string]*table.ColumnStatistics{
		"c": {
			Name:  "c",
			Type:  table.TypeCategorical,
			Count: 3,
			Categorical: &table.CategoricalSummary{
				TopValues:     []table.ValueCount{{Value: "a", Count: 2}, {Value: "b", Count: 1}},
				DistinctCount: 2,
			},
		},
	}

	imputed := table.Impute(ds, profiles)
	assert.Equal(t, "a", imputed.Rows[1]["c"])
}

func TestImputeSkipsAllMissingColumn(t *testing.T) {
	ds := table.NewDataset("n.csv", []string{"v"}, []table.Record{{"v": nil}, {"v": nil}})
	profiles := map[string]*table.ColumnStatistics{
		"v": {Name: "v", Type: table.TypeCategorical, Count: 0},
	}

	imputed := table.Impute(ds, profiles)
	assert.Nil(t, imputed.Rows[0]["v"])
	assert.Nil(t, imputed.Rows[1]["v"])
}

func TestValidationResultLifecycle(t *testing.T) {
	v := table.NewValidationResult(10, 2, []string{"a", "b"})
	assert.True(t, v.IsValid)

	v.AddWarning("something mild")
	assert.True(t, v.IsValid, "warnings never block")

	v.AddError("something fatal")
	assert.False(t, v.IsValid)
	assert.Len(t, v.Warnings, 1)
	assert.Len(t, v.Errors, 1)
}
