// Command profile runs the ingest-and-profile pipeline against a local
// CSV or xlsx file and prints the result as JSON, for scripting and
// debugging without the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"statflow/adapters/corr"
	"statflow/adapters/ingest"
	"statflow/adapters/profile"
	"statflow/domain/core"
	"statflow/domain/table"
	"statflow/internal"
	"statflow/internal/pipeline"
)

type output struct {
	Source       string                    `json:"source"`
	RunID        core.RunID                `json:"run_id"`
	Rows         int                       `json:"rows"`
	Columns      int                       `json:"columns"`
	Truncated    bool                      `json:"truncated"`
	Validation   *table.ValidationResult   `json:"validation"`
	Profiles     []*table.ColumnStatistics `json:"profiles"`
	Correlations *table.CorrelationMatrix  `json:"correlations,omitempty"`
}

func main() {
	sheet := flag.Int("sheet", -1, "sheet index for xlsx workbooks")
	progress := flag.Bool("progress", false, "print ingestion progress to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: profile [-sheet N] [-progress] <file.csv|file.xlsx>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}

	pipe := pipeline.New(
		pipeline.DefaultConfig(),
		ingest.NewController(ingest.DefaultConfig()),
		profile.NewProfiler(profile.DefaultConfig()),
		corr.NewCalculator(),
		internal.NewLogger(internal.LogLevelError),
	)

	var cb func(processed, total int, pct, eta float64)
	if *progress {
		cb = func(processed, total int, pct, eta float64) {
			fmt.Fprintf(os.Stderr, "\r%d/%d rows (%.1f%%)", processed, total, pct)
		}
	}

	state, err := pipe.Run(context.Background(), data, path, *sheet, cb)
	if *progress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "profile %s: %v\n", path, err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{
		Source:       state.Dataset.Source,
		RunID:        state.RunID,
		Rows:         state.Dataset.RowCount(),
		Columns:      state.Dataset.ColumnCount(),
		Truncated:    state.Truncated,
		Validation:   state.Validation,
		Profiles:     state.Profiles,
		Correlations: state.Matrix,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}
