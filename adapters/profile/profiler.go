package profile

import (
	"context"
	"math"
	"sort"

	"statflow/domain/core"
	"statflow/domain/table"

	"github.com/montanaflynn/stats"
)

// Profiler computes per-column descriptive summaries. It implements
// ports.ProfilerPort and never mutates the dataset, so profiles for
// different columns are safe to compute concurrently.
type Profiler struct {
	config     Config
	inferencer *Inferencer
}

// NewProfiler creates a profiler with the given parameters
func NewProfiler(config Config) *Profiler {
	return &Profiler{
		config:     config,
		inferencer: NewInferencer(config),
	}
}

// Profile returns one ColumnStatistics per column, in column order
func (p *Profiler) Profile(ctx context.Context, ds *table.Dataset) ([]*table.ColumnStatistics, error) {
	profiles := make([]*table.ColumnStatistics, 0, ds.ColumnCount())
	for _, name := range ds.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cs, err := p.profileColumn(ds, name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, cs)
	}
	return profiles, nil
}

// ProfileColumn computes the summary for a single column
func (p *Profiler) ProfileColumn(ctx context.Context, ds *table.Dataset, name string) (*table.ColumnStatistics, error) {
	return p.profileColumn(ds, name)
}

func (p *Profiler) profileColumn(ds *table.Dataset, name string) (*table.ColumnStatistics, error) {
	values, err := ds.Column(name)
	if err != nil {
		return nil, err
	}

	missing := 0
	distinct := make(map[string]struct{})
	for _, v := range values {
		if v == nil {
			missing++
			continue
		}
		distinct[table.FormatCell(v)] = struct{}{}
	}

	cs := &table.ColumnStatistics{
		Name:         name,
		Type:         p.inferencer.InferType(values),
		Count:        len(values) - missing,
		MissingCount: missing,
		UniqueValues: len(distinct),
		ComputedAt:   core.Now(),
	}

	switch cs.Type {
	case table.TypeNumeric:
		summary, err := p.numericSummary(ds, name)
		if err != nil {
			return nil, err
		}
		cs.Numeric = summary
	default:
		cs.Categorical = p.categoricalSummary(values)
	}
	return cs, nil
}

// numericSummary computes the descriptive block for a numeric column.
// Std is Bessel-corrected and defined as 0 for n <= 1; quartiles are
// nearest-rank on the sorted values; outliers fall outside
// [Q1 - f*IQR, Q3 + f*IQR] and are reported as dataset row indices.
func (p *Profiler) numericSummary(ds *table.Dataset, name string) (*table.NumericSummary, error) {
	nums, rowIndices, err := ds.NumericColumn(name)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, nil
	}

	mean, err := stats.Mean(nums)
	if err != nil {
		return nil, err
	}
	min, err := stats.Min(nums)
	if err != nil {
		return nil, err
	}
	max, err := stats.Max(nums)
	if err != nil {
		return nil, err
	}
	median, err := stats.Median(nums)
	if err != nil {
		return nil, err
	}

	std := 0.0
	if len(nums) > 1 {
		std, err = stats.StandardDeviationSample(nums)
		if err != nil {
			return nil, err
		}
	}

	sorted := make([]float64, len(nums))
	copy(sorted, nums)
	sort.Float64s(sorted)
	q1 := nearestRank(sorted, 25)
	q3 := nearestRank(sorted, 75)

	iqr := q3 - q1
	lower := q1 - p.config.IQRFactor*iqr
	upper := q3 + p.config.IQRFactor*iqr

	outliers := []int{}
	for i, v := range nums {
		if v < lower || v > upper {
			outliers = append(outliers, rowIndices[i])
		}
	}

	return &table.NumericSummary{
		Mean:        mean,
		Std:         std,
		Min:         min,
		Max:         max,
		Q1:          q1,
		Median:      median,
		Q3:          q3,
		OutlierRows: outliers,
	}, nil
}

// categoricalSummary builds the frequency view: counts per distinct
// value, top-N by descending count with ties broken by first-seen order
func (p *Profiler) categoricalSummary(values []interface{}) *table.CategoricalSummary {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if v == nil {
			continue
		}
		key := table.FormatCell(v)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	ranked := make([]table.ValueCount, len(order))
	for i, key := range order {
		ranked[i] = table.ValueCount{Value: key, Count: counts[key]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	top := ranked
	if len(top) > p.config.TopN {
		top = top[:p.config.TopN]
	}

	return &table.CategoricalSummary{
		TopValues:     top,
		DistinctCount: len(order),
	}
}

// nearestRank selects the p-th percentile by nearest-rank on a sorted
// slice: the value at ceil(p/100 * n), no interpolation
func nearestRank(sorted []float64, percentile float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	rank := int(math.Ceil(percentile / 100 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}
