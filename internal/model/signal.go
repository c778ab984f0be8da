package model

import (
	"fmt"
	"strings"
)

// Signal identifies one independent classifier/feature modality
type Signal string

const (
	SignalURL        Signal = "URL"        // URL lexical structure
	SignalNetwork    Signal = "Network"    // DNS / host reputation
	SignalHTML       Signal = "HTML"       // HTML structure
	SignalNLP        Signal = "NLP"        // Visible page text
	SignalBehavioral Signal = "Behavioral" // Form behavior heuristics
)

// SignalOrder is the fixed evaluation order. Fusion sums in this order so
// floating point results are reproducible.
var SignalOrder = []Signal{SignalURL, SignalNetwork, SignalHTML, SignalNLP, SignalBehavioral}

// MandatorySignals must be present before fusion can run
var MandatorySignals = []Signal{SignalURL, SignalNetwork}

// IsMandatory reports whether the signal is always computed
func (s Signal) IsMandatory() bool {
	return s == SignalURL || s == SignalNetwork
}

// NeedsContent reports whether the signal requires fetched page content
func (s Signal) NeedsContent() bool {
	return s == SignalHTML || s == SignalNLP || s == SignalBehavioral
}

// Valid reports whether s is one of the known signals
func (s Signal) Valid() bool {
	for _, known := range SignalOrder {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSignal converts a case-insensitive name into a Signal
func ParseSignal(name string) (Signal, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "url":
		return SignalURL, nil
	case "network":
		return SignalNetwork, nil
	case "html":
		return SignalHTML, nil
	case "nlp", "text":
		return SignalNLP, nil
	case "behavioral", "behavioural":
		return SignalBehavioral, nil
	}
	return "", fmt.Errorf("unknown signal %q", name)
}

// SignalScore is one classifier output for a single scan
type SignalScore struct {
	Name        Signal  `json:"name"`
	Probability float64 `json:"probability"` // [0,1]
}

// WeightTable maps each signal to its non-negative base weight
type WeightTable map[Signal]float64

// DefaultWeights returns the standard weight table
func DefaultWeights() WeightTable {
	return WeightTable{
		SignalURL:        0.25,
		SignalNetwork:    0.25,
		SignalHTML:       0.20,
		SignalNLP:        0.15,
		SignalBehavioral: 0.15,
	}
}

// Total returns the sum of all weights in the table
func (w WeightTable) Total() float64 {
	total := 0.0
	for _, s := range SignalOrder {
		total += w[s]
	}
	return total
}

// Label is the categorical verdict
type Label string

const (
	LabelLegitimate Label = "Legitimate"
	LabelSuspicious Label = "Suspicious"
	LabelPhishing   Label = "Phishing"
)

// Valid reports whether l is a known label
func (l Label) Valid() bool {
	switch l {
	case LabelLegitimate, LabelSuspicious, LabelPhishing:
		return true
	}
	return false
}

// RiskTier is the coarse risk bucket derived from the fused percentage
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Valid reports whether r is a known tier
func (r RiskTier) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// FusionResult is the combined verdict of all available signals
type FusionResult struct {
	Probability  float64            `json:"probability"`   // 0-100, two decimals
	Label        Label              `json:"label"`         // Legitimate, Suspicious, Phishing
	Risk         RiskTier           `json:"risk"`          // LOW, MEDIUM, HIGH
	SignalScores map[Signal]float64 `json:"signal_scores"` // per-signal percentage, two decimals
	Available    []Signal           `json:"available"`     // signals that contributed
	Unavailable  []Signal           `json:"unavailable"`   // optional signals that did not run
}

// Degraded reports whether fusion ran on the mandatory signals alone
func (r FusionResult) Degraded() bool {
	if len(r.Unavailable) == 0 {
		return false
	}
	for _, s := range r.Available {
		if !s.IsMandatory() {
			return false
		}
	}
	return true
}
