package model

import "time"

// Report is the complete result of one scan as delivered to the caller
type Report struct {
	URL       string    `json:"url"`        // URL that was scanned
	ScannedAt time.Time `json:"scanned_at"` // When the verdict was produced

	FinalLabel   Label              `json:"final_label"`
	RiskLevel    RiskTier           `json:"risk_level"`
	Probability  float64            `json:"probability"`   // 0-100, two decimals
	SignalScores map[Signal]float64 `json:"signal_scores"` // per-signal percentage breakdown
	Reasons      []string           `json:"reasons"`

	AvailableSignals   []Signal `json:"available_signals"`
	UnavailableSignals []Signal `json:"unavailable_signals,omitempty"`
	Degraded           bool     `json:"degraded"` // only mandatory signals ran

	Fetch       FetchMeta  `json:"fetch"`
	DomainIntel DomainInfo `json:"domain_intel"`

	LedgerError string      `json:"ledger_error,omitempty"` // audit write failed; verdict still valid
	LLM         *LLMSummary `json:"llm,omitempty"`          // Optional narrative (never affects score)
}

// FetchMeta contains HTTP metadata from fetching the page
type FetchMeta struct {
	Attempted   bool   `json:"attempted"`
	Prefetched  bool   `json:"prefetched,omitempty"` // caller supplied the HTML
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	FinalURL    string `json:"final_url,omitempty"`
	Bytes       int    `json:"bytes,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Unknown is the placeholder for domain intelligence that could not be collected
const Unknown = "Unknown"

// DomainInfo holds best-effort WHOIS/TLS facts. Display only.
type DomainInfo struct {
	DomainAge string `json:"domain_age"`
	SSLStatus string `json:"ssl_status"`
	Registrar string `json:"registrar"`
	Country   string `json:"country"`
}

// UnknownDomainInfo returns a DomainInfo with every field set to Unknown
func UnknownDomainInfo() DomainInfo {
	return DomainInfo{
		DomainAge: Unknown,
		SSLStatus: Unknown,
		Registrar: Unknown,
		Country:   Unknown,
	}
}

// LLMSummary contains an optional LLM-generated explanation.
// It is produced after the verdict and never changes it.
type LLMSummary struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	SummaryMD string   `json:"summary_md,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// NewReport assembles a report from a fusion result
func NewReport(url string, at time.Time, fused FusionResult, reasons []string) *Report {
	if reasons == nil {
		reasons = []string{}
	}
	return &Report{
		URL:                url,
		ScannedAt:          at,
		FinalLabel:         fused.Label,
		RiskLevel:          fused.Risk,
		Probability:        fused.Probability,
		SignalScores:       fused.SignalScores,
		Reasons:            reasons,
		AvailableSignals:   fused.Available,
		UnavailableSignals: fused.Unavailable,
		Degraded:           fused.Degraded(),
		DomainIntel:        UnknownDomainInfo(),
	}
}
