package testkit

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"statflow/domain/table"
)

// GeneratorConfig configures the synthetic tabular data generator
type GeneratorConfig struct {
	Rows        int
	Seed        int64
	MissingRate float64 // probability a generated cell is left empty
}

// DefaultGeneratorConfig returns a deterministic medium-sized config
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Rows: 1000,
		Seed: 42,
	}
}

// Generator produces synthetic datasets with known statistical
// structure: a monotone id, a noisy linear response, a seasonal
// signal, and a low-cardinality category. Same seed, same data.
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a seeded generator
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Columns returns the header the generator emits
func (g *Generator) Columns() []string {
	return []string{"id", "measure", "response", "season", "segment"}
}

// CSV renders the synthetic table as an in-memory CSV file
func (g *Generator) CSV() []byte {
	// fresh rng so CSV() and Dataset() agree regardless of call order
	g.rng = rand.New(rand.NewSource(g.config.Seed))
	var buf bytes.Buffer
	buf.WriteString("id,measure,response,season,segment\n")
	for i := 0; i < g.config.Rows; i++ {
		cells := g.row(i)
		for j, cell := range cells {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(cell)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Dataset builds the same synthetic table directly as a Dataset,
// bypassing parsing
func (g *Generator) Dataset() *table.Dataset {
	g.rng = rand.New(rand.NewSource(g.config.Seed))
	rows := make([]table.Record, 0, g.config.Rows)
	for i := 0; i < g.config.Rows; i++ {
		cells := g.row(i)
		rec := table.Record{}
		for j, name := range g.Columns() {
			if cells[j] == "" {
				rec[name] = nil
				continue
			}
			if f, err := strconv.ParseFloat(cells[j], 64); err == nil {
				rec[name] = f
			} else {
				rec[name] = cells[j]
			}
		}
		rows = append(rows, rec)
	}
	return table.NewDataset("synthetic.csv", g.Columns(), rows)
}

func (g *Generator) row(i int) []string {
	segments := []string{"basic", "plus", "pro"}
	measure := g.rng.NormFloat64()*10 + 50
	response := 3*measure + g.rng.NormFloat64()*5
	season := math.Sin(2 * math.Pi * float64(i) / 365)

	cells := []string{
		strconv.Itoa(i + 1),
		formatFloat(measure),
		formatFloat(response),
		formatFloat(season),
		segments[i%len(segments)],
	}
	for j := 1; j < len(cells); j++ {
		if g.config.MissingRate > 0 && g.rng.Float64() < g.config.MissingRate {
			cells[j] = ""
		}
	}
	return cells
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// GroupSamples draws k seeded normal samples for compute tests
func GroupSamples(seed int64, k, n int, means []float64, std float64) [][]float64 {
	if len(means) != k {
		panic(fmt.Sprintf("need %d means, got %d", k, len(means)))
	}
	rng := rand.New(rand.NewSource(seed))
	groups := make([][]float64, k)
	for i := 0; i < k; i++ {
		groups[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			groups[i][j] = rng.NormFloat64()*std + means[i]
		}
	}
	return groups
}
