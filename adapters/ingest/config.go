package ingest

// Config holds ingestion limits and chunking parameters
type Config struct {
	ChunkSize           int    `json:"chunk_size"`            // rows per chunk
	MaxRows             int    `json:"max_rows"`              // row ceiling, truncates past this
	MaxCSVBytes         int64  `json:"max_csv_bytes"`         // size ceiling for delimiter text
	MaxSpreadsheetBytes int64  `json:"max_spreadsheet_bytes"` // size ceiling for workbook binaries
	MemoryHighWater     uint64 `json:"memory_high_water"`     // heap bytes before the pressure flag is set
}

// DefaultConfig returns sensible defaults. The spreadsheet ceiling is
// smaller than the CSV one because workbook parsing costs far more per
// byte.
func DefaultConfig() Config {
	return Config{
		ChunkSize:           10_000,
		MaxRows:             100_000,
		MaxCSVBytes:         100 * 1024 * 1024,
		MaxSpreadsheetBytes: 20 * 1024 * 1024,
		MemoryHighWater:     512 * 1024 * 1024,
	}
}
