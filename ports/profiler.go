package ports

import (
	"context"

	"statflow/domain/table"
)

// ProfilerPort derives per-column statistics from a dataset. The dataset
// is read-only; profiles for different columns may be computed
// concurrently against the same instance.
type ProfilerPort interface {
	// Profile returns one ColumnStatistics per column, in column order
	Profile(ctx context.Context, ds *table.Dataset) ([]*table.ColumnStatistics, error)
}

// CorrelationPort builds a pairwise Pearson matrix over numeric columns.
// The caller caps the label list; the implementation decides whether to
// compute inline or offload, with an identical result either way.
type CorrelationPort interface {
	Matrix(ctx context.Context, ds *table.Dataset, labels []string) (*table.CorrelationMatrix, error)
}
