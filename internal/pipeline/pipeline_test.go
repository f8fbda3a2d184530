package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"statflow/adapters/corr"
	"statflow/adapters/ingest"
	"statflow/adapters/profile"
	"statflow/domain/table"
	"statflow/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T, ingestCfg ingest.Config) *Pipeline {
	t.Helper()
	return New(
		DefaultConfig(),
		ingest.NewController(ingestCfg),
		profile.NewProfiler(profile.DefaultConfig()),
		corr.NewCalculator(),
		nil,
	)
}

func TestRunEndToEnd(t *testing.T) {
	gen := testkit.NewGenerator(testkit.DefaultGeneratorConfig())
	p := newPipeline(t, ingest.DefaultConfig())

	state, err := p.Run(context.Background(), gen.CSV(), "synthetic.csv", -1, nil)
	require.NoError(t, err)

	assert.Equal(t, 1000, state.Dataset.RowCount())
	assert.Equal(t, 5, state.Dataset.ColumnCount())
	assert.True(t, state.Validation.IsValid)
	assert.False(t, state.Truncated)
	require.Len(t, state.Profiles, 5)

	// id, measure, response, season are numeric; segment is categorical
	assert.Equal(t, table.TypeNumeric, state.ProfileFor("measure").Type)
	assert.Equal(t, table.TypeCategorical, state.ProfileFor("segment").Type)
	require.NotNil(t, state.ProfileFor("segment").Categorical)
	assert.Equal(t, 3, state.ProfileFor("segment").Categorical.DistinctCount)

	// response = 3*measure + noise, so the pair correlates strongly
	require.NotNil(t, state.Matrix)
	assert.Equal(t, 4, state.Matrix.Size())
	require.NoError(t, state.Matrix.Validate())

	mi, ri := -1, -1
	for i, label := range state.Matrix.Labels {
		switch label {
		case "measure":
			mi = i
		case "response":
			ri = i
		}
	}
	require.NotEqual(t, -1, mi)
	require.NotEqual(t, -1, ri)
	assert.Greater(t, state.Matrix.At(mi, ri), 0.95)
}

func TestChunkedMatchesUnchunked(t *testing.T) {
	cfg := testkit.DefaultGeneratorConfig()
	cfg.Rows = 50_000
	data := testkit.NewGenerator(cfg).CSV()

	small := ingest.DefaultConfig()
	small.ChunkSize = 1_000
	big := ingest.DefaultConfig()
	big.ChunkSize = 1_000_000 // one chunk holds everything

	chunked, err := newPipeline(t, small).Run(context.Background(), data, "synthetic.csv", -1, nil)
	require.NoError(t, err)
	whole, err := newPipeline(t, big).Run(context.Background(), data, "synthetic.csv", -1, nil)
	require.NoError(t, err)

	assert.True(t, chunked.Dataset.Equal(whole.Dataset))
}

func TestTruncationWarning(t *testing.T) {
	cfg := testkit.DefaultGeneratorConfig()
	cfg.Rows = 250
	data := testkit.NewGenerator(cfg).CSV()

	icfg := ingest.DefaultConfig()
	icfg.ChunkSize = 100
	icfg.MaxRows = 100

	state, err := newPipeline(t, icfg).Run(context.Background(), data, "synthetic.csv", -1, nil)
	require.NoError(t, err)

	assert.True(t, state.Truncated)
	assert.Equal(t, 100, state.Dataset.RowCount())
	assert.True(t, state.Validation.IsValid, "truncation must not block")
	assertHasWarning(t, state.Validation, "truncated")
}

func TestDuplicateRowWarning(t *testing.T) {
	data := []byte("a,b\n1,x\n1,x\n2,y\n1,x\n")
	state, err := newPipeline(t, ingest.DefaultConfig()).Run(context.Background(), data, "dups.csv", -1, nil)
	require.NoError(t, err)

	// "1,x" appears three times: two duplicates
	assert.Equal(t, 2, state.Validation.DuplicateRows)
	assert.True(t, state.Validation.IsValid)
	assertHasWarning(t, state.Validation, "duplicate")
}

func TestMissingRateWarning(t *testing.T) {
	data := []byte("a,b\n1,\n,\n3,\n")
	state, err := newPipeline(t, ingest.DefaultConfig()).Run(context.Background(), data, "gaps.csv", -1, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, state.Validation.TotalMissing)
	assertHasWarning(t, state.Validation, "missing")
	assert.InDelta(t, 4.0/6.0, state.MissingRate(), 1e-12)
}

func TestDuplicateColumnIsBlocking(t *testing.T) {
	data := []byte("a,a\n1,2\n")
	state, err := newPipeline(t, ingest.DefaultConfig()).Run(context.Background(), data, "bad.csv", -1, nil)
	require.NoError(t, err)

	assert.False(t, state.Validation.IsValid)
	require.NotEmpty(t, state.Validation.Errors)
	assert.Contains(t, state.Validation.Errors[0], "duplicate column")
}

func TestZeroVarianceWarning(t *testing.T) {
	data := []byte("x,k\n1,5\n2,5\n3,5\n4,5\n5,5\n")
	state, err := newPipeline(t, ingest.DefaultConfig()).Run(context.Background(), data, "const.csv", -1, nil)
	require.NoError(t, err)

	assertHasWarning(t, state.Validation, "zero variance")
	assert.True(t, state.Validation.IsValid)
}

func TestWideDatasetCapsCorrelation(t *testing.T) {
	var b strings.Builder
	for j := 0; j < 50; j++ {
		if j > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "c%02d", j)
	}
	b.WriteByte('\n')
	for i := 1; i <= 6; i++ {
		for j := 0; j < 50; j++ {
			if j > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%d", i*(j+3))
		}
		b.WriteByte('\n')
	}

	state, err := newPipeline(t, ingest.DefaultConfig()).Run(context.Background(), []byte(b.String()), "wide.csv", -1, nil)
	require.NoError(t, err)

	require.NotNil(t, state.Matrix)
	assert.Equal(t, 10, state.Matrix.Size())
	// the leading columns survive, in file order
	require.Len(t, state.Matrix.Labels, 10)
	for j, label := range state.Matrix.Labels {
		assert.Equal(t, fmt.Sprintf("c%02d", j), label)
	}
	assert.True(t, state.Validation.IsValid, "the cap must not block")
	assertHasWarning(t, state.Validation, "correlation limited")
}

func TestMemoryPressureWarning(t *testing.T) {
	icfg := ingest.DefaultConfig()
	icfg.MemoryHighWater = 1 // any live heap crosses it

	state, err := newPipeline(t, icfg).Run(context.Background(), []byte("a,b\n1,2\n3,4\n"), "tiny.csv", -1, nil)
	require.NoError(t, err)

	assert.True(t, state.MemoryPressure)
	assert.True(t, state.Validation.MemoryPressure)
	assert.True(t, state.Validation.IsValid, "pressure must not block")
	assertHasWarning(t, state.Validation, "memory high-water")
}

func TestTooFewNumericColumnsSkipsMatrix(t *testing.T) {
	data := []byte("x,c\n1,a\n2,b\n3,a\n")
	state, err := newPipeline(t, ingest.DefaultConfig()).Run(context.Background(), data, "narrow.csv", -1, nil)
	require.NoError(t, err)
	assert.Nil(t, state.Matrix)
}

func TestParseFailureIsAnError(t *testing.T) {
	data := []byte("a,b\n1,2\n\"unterminated\n")
	_, err := newPipeline(t, ingest.DefaultConfig()).Run(context.Background(), data, "broken.csv", -1, nil)
	assert.Error(t, err)
}

func TestProgressReporting(t *testing.T) {
	cfg := testkit.DefaultGeneratorConfig()
	cfg.Rows = 5000
	data := testkit.NewGenerator(cfg).CSV()

	icfg := ingest.DefaultConfig()
	icfg.ChunkSize = 500

	var calls int
	var lastPct float64
	progress := func(processed, total int, pct, eta float64) {
		calls++
		if pct < lastPct {
			t.Fatalf("progress went backwards: %v after %v", pct, lastPct)
		}
		lastPct = pct
	}

	_, err := newPipeline(t, icfg).Run(context.Background(), data, "synthetic.csv", -1, progress)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, 10)
}

func assertHasWarning(t *testing.T, v *table.ValidationResult, substr string) {
	t.Helper()
	for _, w := range v.Warnings {
		if strings.Contains(w, substr) {
			return
		}
	}
	t.Fatalf("no warning containing %q in %v", substr, v.Warnings)
}
