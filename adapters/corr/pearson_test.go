package corr

import (
	"context"
	"math"
	"testing"

	"statflow/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerfectPositiveCorrelation(t *testing.T) {
	rows := make([]table.Record, 0, 5)
	for i := 1; i <= 5; i++ {
		rows = append(rows, table.Record{"x": float64(i), "y": float64(2 * i)})
	}
	ds := table.NewDataset("test.csv", []string{"x", "y"}, rows)

	m, err := NewCalculator().Matrix(context.Background(), ds, []string{"x", "y"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.At(0, 1), 1e-9)
}

func TestPerfectNegativeCorrelation(t *testing.T) {
	rows := make([]table.Record, 0, 5)
	for i := 1; i <= 5; i++ {
		rows = append(rows, table.Record{"x": float64(i), "y": float64(-3 * i)})
	}
	ds := table.NewDataset("test.csv", []string{"x", "y"}, rows)

	m, err := NewCalculator().Matrix(context.Background(), ds, []string{"x", "y"})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, m.At(0, 1), 1e-9)
}

func TestConstantColumnCorrelatesZero(t *testing.T) {
	rows := make([]table.Record, 0, 5)
	for i := 1; i <= 5; i++ {
		rows = append(rows, table.Record{"x": float64(i), "k": 7.0})
	}
	ds := table.NewDataset("test.csv", []string{"x", "k"}, rows)

	m, err := NewCalculator().Matrix(context.Background(), ds, []string{"x", "k"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.At(0, 1))

	// but the diagonal stays 1, constant or not
	assert.Equal(t, 1.0, m.At(1, 1))
}

func TestMatrixSymmetryAndDiagonal(t *testing.T) {
	rows := make([]table.Record, 0, 20)
	for i := 0; i < 20; i++ {
		rows = append(rows, table.Record{
			"a": float64(i),
			"b": float64(i*i) * 0.5,
			"c": math.Sin(float64(i)),
		})
	}
	ds := table.NewDataset("test.csv", []string{"a", "b", "c"}, rows)

	m, err := NewCalculator().Matrix(context.Background(), ds, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Equal(t, 3, m.Size())
}

func TestMissingValuesUsePairwiseRows(t *testing.T) {
	// the nil rows break x/y alignment unless pairs intersect on row index
	rows := []table.Record{
		{"x": 1.0, "y": 2.0},
		{"x": nil, "y": 9.0},
		{"x": 2.0, "y": 4.0},
		{"x": 3.0, "y": nil},
		{"x": 4.0, "y": 8.0},
	}
	ds := table.NewDataset("test.csv", []string{"x", "y"}, rows)

	m, err := NewCalculator().Matrix(context.Background(), ds, []string{"x", "y"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.At(0, 1), 1e-9)
}

func TestConcurrentMatchesInline(t *testing.T) {
	const n = 500
	columns := []string{"c0", "c1", "c2", "c3"}
	rows := make([]table.Record, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, table.Record{
			"c0": float64(i),
			"c1": float64(i%37) * 1.5,
			"c2": math.Cos(float64(i) / 10),
			"c3": float64(n - i),
		})
	}
	ds := table.NewDataset("test.csv", columns, rows)

	inline := &Calculator{offloadThreshold: math.MaxInt}
	concurrent := &Calculator{offloadThreshold: 0}

	want, err := inline.Matrix(context.Background(), ds, columns)
	require.NoError(t, err)
	got, err := concurrent.Matrix(context.Background(), ds, columns)
	require.NoError(t, err)

	for i := range want.Values {
		for j := range want.Values[i] {
			if want.Values[i][j] != got.Values[i][j] {
				t.Fatalf("cell (%d,%d) diverged: inline %v, concurrent %v",
					i, j, want.Values[i][j], got.Values[i][j])
			}
		}
	}
}

func TestCancelledContext(t *testing.T) {
	rows := make([]table.Record, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, table.Record{"x": float64(i), "y": float64(i)})
	}
	ds := table.NewDataset("test.csv", []string{"x", "y"}, rows)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCalculator().Matrix(ctx, ds, []string{"x", "y"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnknownColumn(t *testing.T) {
	ds := table.NewDataset("test.csv", []string{"x"}, []table.Record{{"x": 1.0}})

	_, err := NewCalculator().Matrix(context.Background(), ds, []string{"x", "missing"})
	if err == nil {
		t.Fatal("expected an error for an unknown column")
	}
}
