package corr

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"statflow/domain/table"

	"golang.org/x/sync/errgroup"
)

// OffloadThreshold is the rows*columns product above which the matrix
// is computed on a worker pool instead of inline. Below it the fan-out
// overhead costs more than it saves.
const OffloadThreshold = 100_000

// Calculator builds pairwise Pearson correlation matrices. It
// implements ports.CorrelationPort.
type Calculator struct {
	offloadThreshold int
}

// NewCalculator creates a correlation calculator with the default
// offload threshold
func NewCalculator() *Calculator {
	return &Calculator{offloadThreshold: OffloadThreshold}
}

// column holds one numeric column extracted once up front, so each of
// the k*(k-1)/2 pairs reads cached slices instead of re-walking rows
type column struct {
	label  string
	values []float64
	rows   []int
}

// Matrix computes the Pearson correlation matrix over the named
// columns. Labels order fixes both axes. Pairwise computation uses
// only rows where both columns are non-missing; a constant column
// correlates 0 with everything and 1 with itself.
func (c *Calculator) Matrix(ctx context.Context, ds *table.Dataset, labels []string) (*table.CorrelationMatrix, error) {
	cols := make([]column, len(labels))
	for i, label := range labels {
		values, rows, err := ds.NumericColumn(label)
		if err != nil {
			return nil, fmt.Errorf("extract column %q: %w", label, err)
		}
		cols[i] = column{label: label, values: values, rows: rows}
	}

	k := len(cols)
	matrix := &table.CorrelationMatrix{
		Labels: append([]string(nil), labels...),
		Values: make([][]float64, k),
	}
	for i := range matrix.Values {
		matrix.Values[i] = make([]float64, k)
		matrix.Values[i][i] = 1.0
	}

	if ds.RowCount()*k > c.offloadThreshold {
		if err := c.fillConcurrent(ctx, cols, matrix); err != nil {
			return nil, err
		}
	} else {
		if err := c.fillInline(ctx, cols, matrix); err != nil {
			return nil, err
		}
	}
	return matrix, nil
}

func (c *Calculator) fillInline(ctx context.Context, cols []column, matrix *table.CorrelationMatrix) error {
	for i := 0; i < len(cols); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for j := i + 1; j < len(cols); j++ {
			r := pearson(cols[i], cols[j])
			matrix.Values[i][j] = r
			matrix.Values[j][i] = r
		}
	}
	return nil
}

// fillConcurrent fans the upper triangle out across workers. Each cell
// is written exactly once per side, so no locking is needed.
func (c *Calculator) fillConcurrent(ctx context.Context, cols []column, matrix *table.CorrelationMatrix) error {
	type pair struct{ i, j int }
	work := make(chan pair)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < runtime.NumCPU(); w++ {
		g.Go(func() error {
			for p := range work {
				r := pearson(cols[p.i], cols[p.j])
				matrix.Values[p.i][p.j] = r
				matrix.Values[p.j][p.i] = r
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(work)
		for i := 0; i < len(cols); i++ {
			for j := i + 1; j < len(cols); j++ {
				select {
				case work <- pair{i, j}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		return nil
	})

	return g.Wait()
}

// pearson computes the coefficient over rows present in both columns,
// using the single-pass sum formulation. A zero denominator means at
// least one side is constant; the coefficient is defined as 0 there
// rather than NaN.
func pearson(x, y column) float64 {
	xv, yv := alignPairs(x, y)
	n := float64(len(xv))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := range xv {
		sumX += xv[i]
		sumY += yv[i]
		sumXY += xv[i] * yv[i]
		sumX2 += xv[i] * xv[i]
		sumY2 += yv[i] * yv[i]
	}

	numerator := n*sumXY - sumX*sumY
	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// alignPairs intersects two columns on their dataset row indices.
// Both slices are already in ascending row order, so a merge walk
// suffices.
func alignPairs(x, y column) ([]float64, []float64) {
	xv := make([]float64, 0, len(x.values))
	yv := make([]float64, 0, len(y.values))
	i, j := 0, 0
	for i < len(x.rows) && j < len(y.rows) {
		switch {
		case x.rows[i] < y.rows[j]:
			i++
		case x.rows[i] > y.rows[j]:
			j++
		default:
			xv = append(xv, x.values[i])
			yv = append(yv, y.values[j])
			i++
			j++
		}
	}
	return xv, yv
}
