package table

// ValidationResult aggregates dataset-level facts gathered during a
// pipeline run. Warnings are ordered and never block; IsValid is true
// iff the blocking error list is empty. Data-quality findings are data,
// not faults.
type ValidationResult struct {
	TotalRows      int      `json:"total_rows"`
	TotalColumns   int      `json:"total_columns"`
	TotalMissing   int      `json:"total_missing"`
	DuplicateRows  int      `json:"duplicate_rows"`
	Columns        []string `json:"columns"`
	Warnings       []string `json:"warnings"`
	Errors         []string `json:"errors"`
	IsValid        bool     `json:"is_valid"`
	MemoryPressure bool     `json:"memory_pressure"`
}

// NewValidationResult creates an empty, valid result for a dataset shape
func NewValidationResult(rows, columns int, columnNames []string) *ValidationResult {
	names := make([]string, len(columnNames))
	copy(names, columnNames)
	return &ValidationResult{
		TotalRows:    rows,
		TotalColumns: columns,
		Columns:      names,
		Warnings:     []string{},
		Errors:       []string{},
		IsValid:      true,
	}
}

// AddWarning appends a non-blocking finding
func (v *ValidationResult) AddWarning(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// AddError appends a blocking error and flips IsValid
func (v *ValidationResult) AddError(msg string) {
	v.Errors = append(v.Errors, msg)
	v.IsValid = false
}
