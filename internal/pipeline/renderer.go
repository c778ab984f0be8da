package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/phishfuse/internal/llm"
	"github.com/ppiankov/phishfuse/internal/model"
)

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON encodes the report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// RenderJSON writes the report to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.WriteJSON(f, report); err != nil {
		f.Close()
		return fmt.Errorf("encode report: %w", err)
	}
	return f.Close()
}

// Markdown renders the report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Phishing scan: %s\n\n", report.URL)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Verdict | **%s** |\n", report.FinalLabel)
	fmt.Fprintf(&b, "| Risk | %s |\n", report.RiskLevel)
	fmt.Fprintf(&b, "| Probability | %.2f%% |\n", report.Probability)
	fmt.Fprintf(&b, "| Scanned at | %s |\n", report.ScannedAt.Format(model.TimestampLayout))
	if report.Degraded {
		b.WriteString("| Mode | degraded (page content unavailable) |\n")
	}
	b.WriteString("\n")

	b.WriteString("## Signals\n\n| Signal | Score |\n|---|---|\n")
	for _, s := range model.SignalOrder {
		if p, ok := report.SignalScores[s]; ok {
			fmt.Fprintf(&b, "| %s | %.2f%% |\n", s, p)
		} else {
			fmt.Fprintf(&b, "| %s | n/a |\n", s)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Reasons\n\n")
	if len(report.Reasons) == 0 {
		b.WriteString("_No rule triggered._\n")
	}
	for _, reason := range report.Reasons {
		fmt.Fprintf(&b, "- %s\n", reason)
	}
	b.WriteString("\n")

	b.WriteString("## Domain\n\n")
	fmt.Fprintf(&b, "- Domain age: %s\n", report.DomainIntel.DomainAge)
	fmt.Fprintf(&b, "- SSL: %s\n", report.DomainIntel.SSLStatus)
	fmt.Fprintf(&b, "- Registrar: %s\n", report.DomainIntel.Registrar)
	fmt.Fprintf(&b, "- Country: %s\n\n", report.DomainIntel.Country)

	if report.Fetch.Error != "" {
		fmt.Fprintf(&b, "Fetch error: `%s`\n\n", report.Fetch.Error)
	}
	if report.LedgerError != "" {
		fmt.Fprintf(&b, "Ledger error: `%s`\n\n", report.LedgerError)
	}

	if section := llm.RenderMarkdown(report.LLM); section != "" {
		b.WriteString(section)
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n_Generated by phishfuse. Scores are heuristic; confirm before acting._\n")
	}
	return b.String()
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	if err := os.WriteFile(path, []byte(r.Markdown(report)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints a short human summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	icon := "✓"
	switch report.FinalLabel {
	case model.LabelPhishing:
		icon = "✗"
	case model.LabelSuspicious:
		icon = "!"
	}

	fmt.Fprintf(w, "%s %s\n", icon, report.URL)
	fmt.Fprintf(w, "  Verdict:     %s (%s risk)\n", report.FinalLabel, report.RiskLevel)
	fmt.Fprintf(w, "  Probability: %.2f%%\n", report.Probability)

	var parts []string
	for _, s := range model.SignalOrder {
		if p, ok := report.SignalScores[s]; ok {
			parts = append(parts, fmt.Sprintf("%s %.0f%%", s, p))
		}
	}
	fmt.Fprintf(w, "  Signals:     %s\n", strings.Join(parts, ", "))
	if report.Degraded {
		fmt.Fprintf(w, "  Mode:        degraded (%s)\n", fetchProblem(report.Fetch))
	}
	for _, reason := range report.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	if report.LedgerError != "" {
		fmt.Fprintf(w, "  Warning: not recorded in ledger: %s\n", report.LedgerError)
	}
}

func fetchProblem(meta model.FetchMeta) string {
	if meta.Error != "" {
		return meta.Error
	}
	return "page content unavailable"
}
