package fusion

import (
	"fmt"
	"math"

	"github.com/ppiankov/phishfuse/internal/model"
)

// Policy parameterizes the fusion engine
type Policy struct {
	Weights model.WeightTable

	// HighThreshold and MediumThreshold are percentages. Each tier includes
	// its lower bound.
	HighThreshold   float64
	MediumThreshold float64

	// Tiers is 3 (Legitimate / Suspicious / Phishing) or 2, where the middle
	// band is labelled Phishing with MEDIUM risk.
	Tiers int

	// Renormalize divides by the weights actually applied. When false the
	// denominator is the full table sum, so an absent signal counts as zero.
	Renormalize bool
}

// DefaultPolicy returns the standard three-tier renormalizing policy
func DefaultPolicy() Policy {
	return Policy{
		Weights:         model.DefaultWeights(),
		HighThreshold:   80,
		MediumThreshold: 50,
		Tiers:           3,
		Renormalize:     true,
	}
}

// PolicyFromConfig builds a validated policy from configuration
func PolicyFromConfig(cfg model.FusionConfig) (Policy, error) {
	p := Policy{
		Weights:         cfg.Weights.Table(),
		HighThreshold:   cfg.HighThreshold,
		MediumThreshold: cfg.MediumThreshold,
		Tiers:           cfg.Tiers,
		Renormalize:     cfg.Renormalize,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate rejects policies that cannot produce a meaningful verdict
func (p Policy) Validate() error {
	for _, s := range model.SignalOrder {
		w := p.Weights[s]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: weight for %s is %v", ErrInvalidPolicy, s, w)
		}
	}
	for s := range p.Weights {
		if !s.Valid() {
			return fmt.Errorf("%w: %w: %q", ErrInvalidPolicy, ErrUnknownSignal, s)
		}
	}
	if p.MediumThreshold < 0 || p.HighThreshold > 100 || p.MediumThreshold > p.HighThreshold {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= medium (%.2f) <= high (%.2f) <= 100",
			ErrInvalidPolicy, p.MediumThreshold, p.HighThreshold)
	}
	if p.Tiers != 2 && p.Tiers != 3 {
		return fmt.Errorf("%w: tiers must be 2 or 3, got %d", ErrInvalidPolicy, p.Tiers)
	}
	return nil
}

// classify maps a fused percentage to a label and risk tier
func (p Policy) classify(pct float64) (model.Label, model.RiskTier) {
	switch {
	case pct >= p.HighThreshold:
		return model.LabelPhishing, model.RiskHigh
	case pct >= p.MediumThreshold:
		if p.Tiers == 2 {
			return model.LabelPhishing, model.RiskMedium
		}
		return model.LabelSuspicious, model.RiskMedium
	default:
		return model.LabelLegitimate, model.RiskLow
	}
}
