// Package llm produces an optional plain-language explanation of a verdict.
// It runs after fusion and never changes the label, score or ledger row.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/phishfuse/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize explains a verdict
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is reachable with the configured credentials
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for summarization
type SummarizeRequest struct {
	Report model.Report

	// AllowedURLs is the only set of URLs the model may mention
	AllowedURLs []string

	Prompt    string // empty: BuildPrompt
	Model     string // provider-specific
	MaxTokens int
}

// SummarizeResponse contains the model output
type SummarizeResponse struct {
	Summary    string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string // custom or OpenAI-compatible endpoint

	Timeout   int // seconds
	MaxTokens int

	// StrictURLs rejects summaries citing URLs outside AllowedURLs
	StrictURLs bool
}

// DefaultConfig returns the disabled configuration
func DefaultConfig() Config {
	return Config{
		Timeout:    30,
		MaxTokens:  600,
		StrictURLs: true,
	}
}

// BuildPrompt constructs the default prompt for a verdict
func BuildPrompt(report model.Report, allowedURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are explaining the result of an automated phishing check to a non-technical user.

RULES:
1. The verdict below is final. Do not contradict it or invent a different score.
2. You may only mention these URLs:%s
3. Base the explanation only on the reasons and signal scores listed.
4. If page content was not analysed, say so.

Verdict:
- URL: %s
- Label: %s
- Risk: %s
- Probability: %.2f%%
- Page content analysed: %t
`, joinURLs(allowedURLs), report.URL, report.FinalLabel, report.RiskLevel, report.Probability, !report.Degraded)

	if len(report.SignalScores) > 0 {
		b.WriteString("\nSignal scores:\n")
		for _, s := range model.SignalOrder {
			if p, ok := report.SignalScores[s]; ok {
				fmt.Fprintf(&b, "- %s: %.2f%%\n", s, p)
			}
		}
	}

	if len(report.Reasons) > 0 {
		b.WriteString("\nReasons:\n")
		reasons := append([]string(nil), report.Reasons...)
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	b.WriteString("\nWrite 2-4 sentences explaining what this means and what the user should do.")
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return " (none)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= 10 {
			fmt.Fprintf(&b, "\n   ... and %d more", len(urls)-10)
			break
		}
		fmt.Fprintf(&b, "\n   - %s", u)
	}
	return b.String()
}
