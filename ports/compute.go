package ports

import (
	"context"
)

// Operation names the closed set of statistical computations the backend
// supports. Callers never construct source code; every operation has a
// fixed input and output schema, so any backend (local numeric library,
// remote service, embedded interpreter) can sit behind the port.
type Operation string

const (
	OpDescriptive Operation = "descriptive"
	OpNormality   Operation = "normality"
	OpLevene      Operation = "levene"
	OpTTest       Operation = "ttest"
	OpWelch       Operation = "welch"
	OpMannWhitney Operation = "mannwhitney"
	OpANOVA       Operation = "anova"
	OpKruskal     Operation = "kruskal"
	OpPostHoc     Operation = "posthoc"
	OpAutoSelect  Operation = "auto"
)

// ComputeRequest is the fixed input schema shared by all operations:
// one or more groups of numeric observations with optional labels.
type ComputeRequest struct {
	Groups [][]float64 `json:"groups"`
	Labels []string    `json:"labels,omitempty"`
	Alpha  float64     `json:"alpha,omitempty"` // significance level, default 0.05
}

// GroupSummary holds per-group descriptive output
type GroupSummary struct {
	Label  string  `json:"label"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// PairComparison is one pairwise post-hoc result. AdjustedP carries the
// Bonferroni correction over all pairs in the same battery.
type PairComparison struct {
	Group1      string  `json:"group1"`
	Group2      string  `json:"group2"`
	MeanDiff    float64 `json:"mean_diff"`
	PValue      float64 `json:"p_value"`
	AdjustedP   float64 `json:"adjusted_p"`
	Significant bool    `json:"significant"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
}

// ComputeResponse is the fixed output schema shared by all operations.
// Statistic/PValue/DF are zero for purely descriptive operations.
type ComputeResponse struct {
	Operation    Operation          `json:"operation"`
	SelectedTest Operation          `json:"selected_test,omitempty"` // set by auto-select
	Method       string             `json:"method,omitempty"`        // set by post-hoc
	Statistic    float64            `json:"statistic"`
	PValue       float64            `json:"p_value"`
	DF           float64            `json:"df"`
	Significant  bool               `json:"significant"`
	Groups       []GroupSummary     `json:"groups,omitempty"`
	Comparisons  []PairComparison   `json:"comparisons,omitempty"` // set by post-hoc
	Details      map[string]float64 `json:"details,omitempty"`
}

// ComputeBackend is the boundary to the statistical-test runner. It has
// an explicit lifecycle so a heavyweight backend can load lazily and the
// boundary stays testable via a substitutable fake.
type ComputeBackend interface {
	Initialize(ctx context.Context) error
	Ready() bool
	Invoke(ctx context.Context, op Operation, req *ComputeRequest) (*ComputeResponse, error)
}
