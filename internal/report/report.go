package report

import (
	"fmt"
	"strings"

	"statflow/domain/table"
	"statflow/internal/pipeline"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders a run summary as a markdown document: dataset shape,
// findings, one section per column, and the correlation matrix when one
// was built
func Markdown(state *pipeline.RunState) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Profile report: %s\n\n", state.Dataset.Source)
	fmt.Fprintf(&b, "Run `%s`, %d rows, %d columns.\n\n",
		state.RunID, state.Dataset.RowCount(), state.Dataset.ColumnCount())

	writeFindings(&b, state.Validation)
	writeColumns(&b, state.Profiles)
	if state.Matrix != nil {
		writeMatrix(&b, state.Matrix)
	}
	return []byte(b.String())
}

// HTML renders the run summary as a standalone HTML page
func HTML(state *pipeline.RunState) []byte {
	md := Markdown(state)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: "Profile report: " + state.Dataset.Source,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(md, p, renderer)
}

func writeFindings(b *strings.Builder, v *table.ValidationResult) {
	if len(v.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, e := range v.Errors {
			fmt.Fprintf(b, "- %s\n", e)
		}
		b.WriteString("\n")
	}
	if len(v.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range v.Warnings {
			fmt.Fprintf(b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "Missing cells: %d. Duplicate rows: %d.\n\n", v.TotalMissing, v.DuplicateRows)
}

func writeColumns(b *strings.Builder, profiles []*table.ColumnStatistics) {
	b.WriteString("## Columns\n\n")
	for _, p := range profiles {
		fmt.Fprintf(b, "### %s\n\n", p.Name)
		fmt.Fprintf(b, "Type %s, %d values, %d missing, %d unique.\n\n",
			p.Type, p.Count, p.MissingCount, p.UniqueValues)

		switch {
		case p.Numeric != nil:
			n := p.Numeric
			b.WriteString("| mean | std | min | q1 | median | q3 | max |\n")
			b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
			fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s | %s |\n\n",
				num(n.Mean), num(n.Std), num(n.Min), num(n.Q1), num(n.Median), num(n.Q3), num(n.Max))
			if len(n.OutlierRows) > 0 {
				fmt.Fprintf(b, "%d outlier rows outside the IQR fence.\n\n", len(n.OutlierRows))
			}
		case p.Categorical != nil:
			b.WriteString("| value | count |\n| --- | --- |\n")
			for _, vc := range p.Categorical.TopValues {
				fmt.Fprintf(b, "| %s | %d |\n", vc.Value, vc.Count)
			}
			b.WriteString("\n")
		}
	}
}

func writeMatrix(b *strings.Builder, m *table.CorrelationMatrix) {
	b.WriteString("## Correlations\n\n")
	b.WriteString("| |")
	for _, label := range m.Labels {
		fmt.Fprintf(b, " %s |", label)
	}
	b.WriteString("\n|")
	for range m.Labels {
		b.WriteString(" --- |")
	}
	b.WriteString(" --- |\n")
	for i, label := range m.Labels {
		fmt.Fprintf(b, "| %s |", label)
		for j := range m.Labels {
			fmt.Fprintf(b, " %s |", num(m.At(i, j)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func num(f float64) string {
	return fmt.Sprintf("%.4g", f)
}
