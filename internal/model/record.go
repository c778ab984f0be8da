package model

import "time"

// TimestampLayout is the on-disk timestamp format (local time, second precision)
const TimestampLayout = "2006-01-02 15:04:05"

// ScanRecord is one completed scan as written to the ledger.
// Records are created once and never mutated.
type ScanRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	URL         string    `json:"url"`
	Label       Label     `json:"label"`
	Probability float64   `json:"probability"`
	Risk        RiskTier  `json:"risk"`
}

// NewScanRecord builds a record from a fusion result, truncating the
// timestamp to whole seconds
func NewScanRecord(at time.Time, url string, fused FusionResult) ScanRecord {
	return ScanRecord{
		Timestamp:   at.Truncate(time.Second),
		URL:         url,
		Label:       fused.Label,
		Probability: fused.Probability,
		Risk:        fused.Risk,
	}
}

// DashboardStats are point-in-time counters reconstructed from the ledger
type DashboardStats struct {
	Total      int `json:"total"`
	Phishing   int `json:"phishing_count"`
	Legitimate int `json:"legitimate_count"`
	Suspicious int `json:"suspicious_count"`
}

// Consistent reports whether the partition counts add up to the total
func (s DashboardStats) Consistent() bool {
	return s.Phishing+s.Legitimate+s.Suspicious == s.Total
}
