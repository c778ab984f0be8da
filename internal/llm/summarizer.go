package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/phishfuse/internal/model"
)

// Summarizer wraps a provider and turns its output into a model.LLMSummary
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer; a disabled config yields a summarizer
// whose IsEnabled is false
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary explains report. A provider error is returned so the
// caller can log it; the verdict is unaffected either way.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return &model.LLMSummary{Enabled: false}, nil
	}

	allowed := []string{report.URL}
	if report.Fetch.FinalURL != "" && report.Fetch.FinalURL != report.URL {
		allowed = append(allowed, report.Fetch.FinalURL)
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:      report,
		AllowedURLs: allowed,
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%s summarize: %w", s.provider.Name(), err)
	}

	summary := &model.LLMSummary{
		Enabled:   true,
		Provider:  s.provider.Name(),
		Model:     resp.Model,
		SummaryMD: resp.Summary,
	}
	if resp.TokensUsed > 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	if len(resp.CitedURLs) > 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Cited URLs checked: %d", len(resp.CitedURLs)))
	}
	return summary, nil
}

// RenderMarkdown renders a summary as a standalone markdown section
func RenderMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled || summary.SummaryMD == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Explanation\n\n")
	b.WriteString(summary.SummaryMD)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "_Generated by %s", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, " (%s)", summary.Model)
	}
	b.WriteString(". The verdict above is computed independently and is not affected by this text._\n")
	return b.String()
}
