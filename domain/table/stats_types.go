package table

import (
	"math"

	"statflow/domain/core"
)

// ColumnType is the inferred statistical type of a column
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeMixed       ColumnType = "mixed"
)

// ColumnStatistics is the derived per-column summary. Exactly one of
// Numeric and Categorical is set for numeric and categorical columns;
// mixed columns carry the categorical view of their values.
type ColumnStatistics struct {
	Name         string              `json:"name"`
	Type         ColumnType          `json:"type"`
	Count        int                 `json:"count"` // non-missing values
	MissingCount int                 `json:"missing_count"`
	UniqueValues int                 `json:"unique_values"`
	Numeric      *NumericSummary     `json:"numeric,omitempty"`
	Categorical  *CategoricalSummary `json:"categorical,omitempty"`
	ComputedAt   core.Timestamp      `json:"computed_at"`
}

// NumericSummary holds descriptive statistics for a numeric column.
// Std is the Bessel-corrected sample standard deviation, defined as 0
// when fewer than two values exist. Quartiles use nearest-rank selection.
type NumericSummary struct {
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Q1          float64 `json:"q1"`
	Median      float64 `json:"median"`
	Q3          float64 `json:"q3"`
	OutlierRows []int   `json:"outlier_rows"` // row indices outside the IQR fence
}

// IQR returns the interquartile range
func (s *NumericSummary) IQR() float64 {
	return s.Q3 - s.Q1
}

// CategoricalSummary holds the frequency view of a categorical column
type CategoricalSummary struct {
	TopValues     []ValueCount `json:"top_values"` // descending count, first-seen tie order
	DistinctCount int          `json:"distinct_count"`
}

// ValueCount represents a value and its frequency
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CorrelationMatrix is a square Pearson correlation matrix over a fixed
// ordered label list. The diagonal is exactly 1 and off-diagonal entries
// lie in [-1, 1]; a constant column correlates 0 with everything.
type CorrelationMatrix struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
}

// At returns the correlation between labels i and j
func (m *CorrelationMatrix) At(i, j int) float64 {
	return m.Values[i][j]
}

// Size returns the number of labels
func (m *CorrelationMatrix) Size() int {
	return len(m.Labels)
}

// Validate checks the structural invariants of the matrix
func (m *CorrelationMatrix) Validate() error {
	k := len(m.Labels)
	if len(m.Values) != k {
		return core.NewValidationError("values", "row count does not match labels")
	}
	for i, row := range m.Values {
		if len(row) != k {
			return core.NewValidationError("values", "matrix is not square")
		}
		if row[i] != 1 {
			return core.NewValidationError("values", "diagonal entry is not 1")
		}
		for j, v := range row {
			if math.Abs(v) > 1+1e-12 {
				return core.NewValidationError("values", "entry outside [-1, 1]")
			}
			if v != m.Values[j][i] {
				return core.NewValidationError("values", "matrix is not symmetric")
			}
		}
	}
	return nil
}
