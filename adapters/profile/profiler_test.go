package profile

import (
	"context"
	"math"
	"testing"

	"statflow/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datasetFromColumns(t *testing.T, columns []string, rows []table.Record) *table.Dataset {
	t.Helper()
	ds := table.NewDataset("test.csv", columns, rows)
	require.NoError(t, ds.Validate())
	return ds
}

func TestInferTypeNumericFraction(t *testing.T) {
	inf := NewInferencer(DefaultConfig())

	// 9 of 10 non-null values numeric: 0.9 > 0.8
	values := []interface{}{
		1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0, "oops",
	}
	assert.Equal(t, table.TypeNumeric, inf.InferType(values))

	// exactly 0.8 is not enough
	values = []interface{}{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0,
		9.0, 10.0, 11.0, 12.0, 13.0, 14.0, 15.0, 16.0, "a", "b", "c", "d"}
	assert.NotEqual(t, table.TypeNumeric, inf.InferType(values))
}

func TestInferTypeCategoricalCardinality(t *testing.T) {
	inf := NewInferencer(DefaultConfig())

	small := make([]interface{}, 100)
	for i := range small {
		small[i] = []string{"red", "green", "blue"}[i%3]
	}
	assert.Equal(t, table.TypeCategorical, inf.InferType(small))

	// 21 distinct strings exceed the cardinality cap
	wide := make([]interface{}, 21)
	for i := range wide {
		wide[i] = string(rune('a' + i))
	}
	assert.Equal(t, table.TypeMixed, inf.InferType(wide))
}

func TestInferTypeAllNull(t *testing.T) {
	inf := NewInferencer(DefaultConfig())
	values := []interface{}{nil, nil, nil}
	assert.Equal(t, table.TypeCategorical, inf.InferType(values))
}

func TestNumericSummaryBasics(t *testing.T) {
	rows := make([]table.Record, 0, 5)
	for _, v := range []float64{2, 4, 4, 4, 6} {
		rows = append(rows, table.Record{"x": v})
	}
	ds := datasetFromColumns(t, []string{"x"}, rows)

	p := NewProfiler(DefaultConfig())
	profiles, err := p.Profile(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	cs := profiles[0]
	require.NotNil(t, cs.Numeric)
	assert.Equal(t, table.TypeNumeric, cs.Type)
	assert.InDelta(t, 4.0, cs.Numeric.Mean, 1e-12)
	// sample std of 2,4,4,4,6 is sqrt(2)
	assert.InDelta(t, math.Sqrt2, cs.Numeric.Std, 1e-12)
	assert.Equal(t, 2.0, cs.Numeric.Min)
	assert.Equal(t, 6.0, cs.Numeric.Max)
	assert.Equal(t, 4.0, cs.Numeric.Median)
}

func TestStdZeroForSingleValue(t *testing.T) {
	ds := datasetFromColumns(t, []string{"x"}, []table.Record{{"x": 7.0}})
	p := NewProfiler(DefaultConfig())
	profiles, err := p.Profile(context.Background(), ds)
	require.NoError(t, err)
	require.NotNil(t, profiles[0].Numeric)
	assert.Equal(t, 0.0, profiles[0].Numeric.Std)
}

func TestOutlierDetection(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}
	rows := make([]table.Record, 0, len(values))
	for _, v := range values {
		rows = append(rows, table.Record{"x": v})
	}
	ds := datasetFromColumns(t, []string{"x"}, rows)

	p := NewProfiler(DefaultConfig())
	profiles, err := p.Profile(context.Background(), ds)
	require.NoError(t, err)

	num := profiles[0].Numeric
	require.NotNil(t, num)
	// nearest-rank quartiles: Q1 = 3, Q3 = 8, fences [-4.5, 15.5]
	assert.Equal(t, 3.0, num.Q1)
	assert.Equal(t, 8.0, num.Q3)
	assert.Equal(t, []int{9}, num.OutlierRows)
}

func TestOutlierRowsSkipMissingRows(t *testing.T) {
	rows := []table.Record{
		{"x": 1.0},
		{"x": nil},
		{"x": 2.0},
		{"x": 3.0},
		{"x": 4.0},
		{"x": 5.0},
		{"x": 6.0},
		{"x": 7.0},
		{"x": 8.0},
		{"x": 9.0},
		{"x": 100.0},
	}
	ds := datasetFromColumns(t, []string{"x"}, rows)

	p := NewProfiler(DefaultConfig())
	profiles, err := p.Profile(context.Background(), ds)
	require.NoError(t, err)

	num := profiles[0].Numeric
	require.NotNil(t, num)
	// the outlier sits at dataset row 10, not numeric-slice index 9
	assert.Equal(t, []int{10}, num.OutlierRows)
	assert.Equal(t, 1, profiles[0].MissingCount)
}

func TestCategoricalTopValuesFirstSeenTies(t *testing.T) {
	// b and c tie at 2; b appeared first and must rank ahead
	order := []string{"a", "b", "c", "a", "b", "c", "a"}
	rows := make([]table.Record, 0, len(order))
	for _, v := range order {
		rows = append(rows, table.Record{"color": v})
	}
	ds := datasetFromColumns(t, []string{"color"}, rows)

	p := NewProfiler(DefaultConfig())
	profiles, err := p.Profile(context.Background(), ds)
	require.NoError(t, err)

	cat := profiles[0].Categorical
	require.NotNil(t, cat)
	require.Len(t, cat.TopValues, 3)
	assert.Equal(t, table.ValueCount{Value: "a", Count: 3}, cat.TopValues[0])
	assert.Equal(t, table.ValueCount{Value: "b", Count: 2}, cat.TopValues[1])
	assert.Equal(t, table.ValueCount{Value: "c", Count: 2}, cat.TopValues[2])
	assert.Equal(t, 3, cat.DistinctCount)
}

func TestCategoricalTopNCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopN = 2

	rows := []table.Record{
		{"c": "x"}, {"c": "x"}, {"c": "y"}, {"c": "z"},
	}
	ds := datasetFromColumns(t, []string{"c"}, rows)

	p := NewProfiler(cfg)
	profiles, err := p.Profile(context.Background(), ds)
	require.NoError(t, err)

	cat := profiles[0].Categorical
	require.Len(t, cat.TopValues, 2)
	assert.Equal(t, 3, cat.DistinctCount)
}

func TestProfileDoesNotMutateDataset(t *testing.T) {
	rows := []table.Record{{"x": 1.0, "c": "a"}, {"x": 2.0, "c": "b"}}
	ds := datasetFromColumns(t, []string{"x", "c"}, rows)
	before := ds.Fingerprints()

	p := NewProfiler(DefaultConfig())
	_, err := p.Profile(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, before, ds.Fingerprints())
}

func TestNearestRank(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if got := nearestRank(sorted, 25); got != 1 {
		t.Fatalf("expected Q1=1, got %v", got)
	}
	if got := nearestRank(sorted, 75); got != 3 {
		t.Fatalf("expected Q3=3, got %v", got)
	}
	if got := nearestRank(sorted, 100); got != 4 {
		t.Fatalf("expected P100=4, got %v", got)
	}
}
