package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeafMist/deep-research/internal/llm"
	"github.com/DeafMist/deep-research/internal/models"
)

const reportPrompt = `You are a research analyst. Create a comprehensive report based on these sources.

Research Query: %s

Sources:%s

Generate a well-structured report with:
1. Executive Summary (2-3 sentences)
2. Key Findings (organized by theme)
3. Conclusion

Be concise, factual, and cite sources as [1], [2], etc.`

// Reporter synthesizes per-source bullets into one report.
type Reporter struct {
	model llm.Model
}

func NewReporter(model llm.Model) *Reporter {
	return &Reporter{model: model}
}

// Generate prompts the synthesis model with every source in order. Citation
// index i in the report refers to sources[i-1].
func (r *Reporter) Generate(ctx context.Context, query string, sources []models.SourceSummary) (string, error) {
	return r.model.Complete(ctx, fmt.Sprintf(reportPrompt, query, formatSources(sources)))
}

func formatSources(sources []models.SourceSummary) string {
	var sb strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&sb, "\n\n**Source %d: %s**\n", i+1, s.Title)
		fmt.Fprintf(&sb, "URL: %s\n", s.URL)
		for _, bullet := range s.Summary {
			sb.WriteString(bullet)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// ReportDiagnostic is the report text returned when synthesis fails.
func ReportDiagnostic(err error) string {
	return "Error generating report: " + err.Error()
}
