package pipeline

import (
	"context"
	"fmt"

	"statflow/adapters/ingest"
	"statflow/domain/core"
	"statflow/domain/table"
	"statflow/internal"
	"statflow/internal/errors"
	"statflow/ports"
)

// Config holds the thresholds the validation stage warns at
type Config struct {
	MissingRateWarn  float64 // fraction of missing cells that triggers a warning
	DuplicateWarn    int     // duplicate row count that triggers a warning
	MinCorrelateCols int     // numeric columns needed before a matrix is built
	MaxCorrelateCols int     // ceiling on columns entering the matrix
}

// DefaultConfig returns the standard pipeline thresholds
func DefaultConfig() Config {
	return Config{
		MissingRateWarn:  0.2,
		DuplicateWarn:    1,
		MinCorrelateCols: 2,
		MaxCorrelateCols: 10,
	}
}

// RunState is the immutable outcome of one pipeline run. Each stage
// reads the previous stage's output and never mutates it; re-running a
// stage on the same input yields the same state.
type RunState struct {
	RunID          core.RunID
	Dataset        *table.Dataset
	Validation     *table.ValidationResult
	Profiles       []*table.ColumnStatistics
	Matrix         *table.CorrelationMatrix // nil when too few numeric columns
	Truncated      bool
	MemoryPressure bool
}

// MissingRate returns the fraction of missing cells over all cells
func (s *RunState) MissingRate() float64 {
	total := s.Dataset.RowCount() * s.Dataset.ColumnCount()
	if total == 0 {
		return 0
	}
	return float64(s.Validation.TotalMissing) / float64(total)
}

// ProfileFor returns the statistics for one column, or nil
func (s *RunState) ProfileFor(name string) *table.ColumnStatistics {
	for _, p := range s.Profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Pipeline runs the full ingest-validate-profile-correlate sequence
type Pipeline struct {
	config     Config
	ingester   *ingest.Controller
	profiler   ports.ProfilerPort
	correlator ports.CorrelationPort
	logger     *internal.Logger
}

// New wires a pipeline from its stage implementations
func New(config Config, ingester *ingest.Controller, profiler ports.ProfilerPort, correlator ports.CorrelationPort, logger *internal.Logger) *Pipeline {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Pipeline{
		config:     config,
		ingester:   ingester,
		profiler:   profiler,
		correlator: correlator,
		logger:     logger,
	}
}

// Run ingests raw file bytes and derives validation, per-column
// profiles, and the correlation matrix. progress may be nil. Parse
// failures and cancellation come back as errors; data-quality findings
// land in the ValidationResult instead.
func (p *Pipeline) Run(ctx context.Context, data []byte, filename string, sheet int, progress ports.ProgressFunc) (*RunState, error) {
	result, err := p.ingester.Ingest(ctx, data, filename, sheet, progress)
	if err != nil {
		return nil, errors.IngestError(fmt.Sprintf("ingest %s", filename), err)
	}

	state := &RunState{
		RunID:          core.NewRunID(),
		Dataset:        result.Dataset,
		Truncated:      result.Truncated,
		MemoryPressure: result.MemoryPressure,
	}
	p.logger.Info("[Pipeline] run %s: %d rows, %d columns from %s (%d chunks)",
		state.RunID, result.Dataset.RowCount(), result.Dataset.ColumnCount(), filename, result.Chunks)

	state.Validation = p.validate(result)

	profiles, err := p.profiler.Profile(ctx, state.Dataset)
	if err != nil {
		return nil, errors.Wrap(err, "profile columns")
	}
	state.Profiles = profiles
	p.warnOnProfiles(state)

	numeric := numericLabels(profiles)
	if p.config.MaxCorrelateCols > 0 && len(numeric) > p.config.MaxCorrelateCols {
		// keep the matrix quadratic cost bounded on wide datasets; the
		// leading columns win, preserving file order
		state.Validation.AddWarning(fmt.Sprintf(
			"correlation limited to the first %d of %d numeric columns",
			p.config.MaxCorrelateCols, len(numeric)))
		numeric = numeric[:p.config.MaxCorrelateCols]
	}
	if len(numeric) >= p.config.MinCorrelateCols {
		matrix, err := p.correlator.Matrix(ctx, state.Dataset, numeric)
		if err != nil {
			return nil, errors.Wrap(err, "correlation matrix")
		}
		state.Matrix = matrix
	} else {
		p.logger.Debug("[Pipeline] run %s: %d numeric columns, skipping correlation", state.RunID, len(numeric))
	}

	return state, nil
}

// validate derives the dataset-level findings. Structural defects are
// blocking errors; data-quality observations are warnings.
func (p *Pipeline) validate(result *ingest.Result) *table.ValidationResult {
	ds := result.Dataset
	v := table.NewValidationResult(ds.RowCount(), ds.ColumnCount(), ds.Columns)

	seen := make(map[string]int)
	for _, name := range ds.Columns {
		if name == "" {
			v.AddError("header contains an empty column name")
		}
		seen[name]++
	}
	for name, n := range seen {
		if n > 1 && name != "" {
			v.AddError(fmt.Sprintf("duplicate column name %q appears %d times", name, n))
		}
	}

	missing := 0
	for _, row := range ds.Rows {
		for _, name := range ds.Columns {
			if row[name] == nil {
				missing++
			}
		}
	}
	v.TotalMissing = missing

	cells := ds.RowCount() * ds.ColumnCount()
	if cells > 0 {
		rate := float64(missing) / float64(cells)
		if rate > p.config.MissingRateWarn {
			v.AddWarning(fmt.Sprintf("%.1f%% of cells are missing", rate*100))
		}
	}

	v.DuplicateRows = countDuplicates(ds)
	if v.DuplicateRows >= p.config.DuplicateWarn && v.DuplicateRows > 0 {
		v.AddWarning(fmt.Sprintf("%d duplicate rows detected", v.DuplicateRows))
	}

	if result.Truncated {
		v.AddWarning(fmt.Sprintf("input truncated to the first %d rows", ds.RowCount()))
	}
	if result.MemoryPressure {
		v.MemoryPressure = true
		v.AddWarning("memory high-water mark crossed during ingestion")
	}

	return v
}

// warnOnProfiles adds findings that need per-column statistics
func (p *Pipeline) warnOnProfiles(state *RunState) {
	for _, prof := range state.Profiles {
		if prof.Type == table.TypeNumeric && prof.Numeric != nil && prof.Numeric.Std == 0 && prof.Count > 1 {
			state.Validation.AddWarning(fmt.Sprintf("column %q has zero variance", prof.Name))
		}
		if prof.Type == table.TypeMixed {
			state.Validation.AddWarning(fmt.Sprintf("column %q mixes numeric and text values", prof.Name))
		}
		if prof.Count == 0 {
			state.Validation.AddWarning(fmt.Sprintf("column %q is entirely missing", prof.Name))
		}
	}
}

// countDuplicates counts rows whose fingerprint was already seen, so a
// row appearing three times contributes two duplicates
func countDuplicates(ds *table.Dataset) int {
	seen := make(map[core.RowFingerprint]struct{}, ds.RowCount())
	duplicates := 0
	for _, fp := range ds.Fingerprints() {
		if _, ok := seen[fp]; ok {
			duplicates++
			continue
		}
		seen[fp] = struct{}{}
	}
	return duplicates
}

// numericLabels returns, in column order, the names typed numeric
func numericLabels(profiles []*table.ColumnStatistics) []string {
	labels := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.Type == table.TypeNumeric {
			labels = append(labels, p.Name)
		}
	}
	return labels
}
