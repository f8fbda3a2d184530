package ports

import (
	"context"

	"statflow/domain/core"
	"statflow/domain/table"
)

// RunStatus is the lifecycle state of an ingestion run
type RunStatus string

const (
	RunProcessing RunStatus = "processing"
	RunReady      RunStatus = "ready"
	RunFailed     RunStatus = "failed"
)

// RunRecord is the persisted metadata of one upload-and-profile run.
// The dataset rows themselves stay in memory for the session; only the
// derived facts and summaries are stored.
type RunRecord struct {
	ID               core.RunID              `json:"id"`
	DatasetID        core.DatasetID          `json:"dataset_id"`
	OriginalFilename string                  `json:"original_filename"`
	FileSize         int64                   `json:"file_size"`
	Format           string                  `json:"format"` // "csv" or "xlsx"
	RowCount         int                     `json:"row_count"`
	ColumnCount      int                     `json:"column_count"`
	MissingRate      float64                 `json:"missing_rate"`
	Status           RunStatus               `json:"status"`
	ErrorMessage     string                  `json:"error_message,omitempty"`
	Validation       *table.ValidationResult `json:"validation,omitempty"`
	CreatedAt        core.Timestamp          `json:"created_at"`
	UpdatedAt        core.Timestamp          `json:"updated_at"`
}

// RunRepository persists run metadata
type RunRepository interface {
	Create(ctx context.Context, rec *RunRecord) error
	Update(ctx context.Context, rec *RunRecord) error
	UpdateStatus(ctx context.Context, id core.RunID, status RunStatus, errorMsg string) error
	GetByID(ctx context.Context, id core.RunID) (*RunRecord, error)
	List(ctx context.Context, limit, offset int) ([]*RunRecord, error)
}
