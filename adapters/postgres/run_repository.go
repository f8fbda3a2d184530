package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"statflow/domain/core"
	"statflow/domain/table"
	"statflow/ports"

	"github.com/jmoiron/sqlx"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// Create inserts a new run record into the database
func (r *runRepository) Create(ctx context.Context, rec *ports.RunRecord) error {
	validationJSON, err := marshalValidation(rec.Validation)
	if err != nil {
		return err
	}

	query := `INSERT INTO runs (
		id, dataset_id, original_filename, file_size, format,
		row_count, column_count, missing_rate, status, error_message,
		validation, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.DatasetID, rec.OriginalFilename, rec.FileSize, rec.Format,
		rec.RowCount, rec.ColumnCount, rec.MissingRate, rec.Status, rec.ErrorMessage,
		validationJSON, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a run record
func (r *runRepository) Update(ctx context.Context, rec *ports.RunRecord) error {
	validationJSON, err := marshalValidation(rec.Validation)
	if err != nil {
		return err
	}

	query := `UPDATE runs SET
		row_count = $2, column_count = $3, missing_rate = $4,
		status = $5, error_message = $6, validation = $7, updated_at = $8
	WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.RowCount, rec.ColumnCount, rec.MissingRate,
		rec.Status, rec.ErrorMessage, validationJSON, core.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return checkAffected(res, rec.ID)
}

// UpdateStatus advances the run lifecycle
func (r *runRepository) UpdateStatus(ctx context.Context, id core.RunID, status ports.RunStatus, errorMsg string) error {
	query := `UPDATE runs SET status = $2, error_message = $3, updated_at = $4 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, status, errorMsg, core.Now())
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return checkAffected(res, id)
}

// GetByID retrieves a run record by its ID
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*ports.RunRecord, error) {
	query := `SELECT
		id, dataset_id, original_filename, COALESCE(file_size, 0) as file_size, format,
		COALESCE(row_count, 0) as row_count, COALESCE(column_count, 0) as column_count,
		COALESCE(missing_rate, 0.0) as missing_rate, status,
		COALESCE(error_message, '') as error_message, validation, created_at, updated_at
	FROM runs WHERE id = $1`

	rec, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return rec, nil
}

// List returns run records newest first
func (r *runRepository) List(ctx context.Context, limit, offset int) ([]*ports.RunRecord, error) {
	query := `SELECT
		id, dataset_id, original_filename, COALESCE(file_size, 0) as file_size, format,
		COALESCE(row_count, 0) as row_count, COALESCE(column_count, 0) as column_count,
		COALESCE(missing_rate, 0.0) as missing_rate, status,
		COALESCE(error_message, '') as error_message, validation, created_at, updated_at
	FROM runs
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []*ports.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*ports.RunRecord, error) {
	var rec ports.RunRecord
	var validationJSON []byte

	err := s.Scan(
		&rec.ID, &rec.DatasetID, &rec.OriginalFilename, &rec.FileSize, &rec.Format,
		&rec.RowCount, &rec.ColumnCount, &rec.MissingRate, &rec.Status,
		&rec.ErrorMessage, &validationJSON, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(validationJSON) > 0 {
		var v table.ValidationResult
		if err := json.Unmarshal(validationJSON, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validation: %w", err)
		}
		rec.Validation = &v
	}
	return &rec, nil
}

func marshalValidation(v *table.ValidationResult) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation: %w", err)
	}
	return data, nil
}

func checkAffected(res sql.Result, id core.RunID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver without RowsAffected support
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return nil
}
