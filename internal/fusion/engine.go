package fusion

import (
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/phishfuse/internal/model"
)

var (
	// ErrMissingMandatorySignal means fusion ran before URL and Network were scored
	ErrMissingMandatorySignal = errors.New("missing mandatory signal")

	// ErrZeroWeight means the applied weights sum to zero (misconfiguration)
	ErrZeroWeight = errors.New("total applied weight is zero")

	// ErrUnknownSignal means a score was supplied for an unrecognised signal
	ErrUnknownSignal = errors.New("unknown signal")

	// ErrInvalidProbability means a score was NaN
	ErrInvalidProbability = errors.New("invalid probability")

	// ErrInvalidPolicy means the policy failed validation
	ErrInvalidPolicy = errors.New("invalid fusion policy")
)

// Engine combines per-signal probabilities into one verdict.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine creates an engine for a validated policy
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	weights := make(model.WeightTable, len(policy.Weights))
	for s, w := range policy.Weights {
		weights[s] = w
	}
	policy.Weights = weights
	return &Engine{policy: policy}, nil
}

// Policy returns a copy of the engine's policy
func (e *Engine) Policy() Policy {
	p := e.policy
	p.Weights = make(model.WeightTable, len(e.policy.Weights))
	for s, w := range e.policy.Weights {
		p.Weights[s] = w
	}
	return p
}

// Fuse computes the weighted aggregate of the supplied scores.
//
//	aggregate = Σ p[s]*w[s] / Σ w[s]   over s present, in SignalOrder
//
// With Renormalize off the denominator is the full weight table.
func (e *Engine) Fuse(scores map[model.Signal]float64) (model.FusionResult, error) {
	for _, s := range model.MandatorySignals {
		if _, ok := scores[s]; !ok {
			return model.FusionResult{}, fmt.Errorf("%w: %s", ErrMissingMandatorySignal, s)
		}
	}
	for s, p := range scores {
		if !s.Valid() {
			return model.FusionResult{}, fmt.Errorf("%w: %q", ErrUnknownSignal, s)
		}
		if math.IsNaN(p) {
			return model.FusionResult{}, fmt.Errorf("%w: %s is NaN", ErrInvalidProbability, s)
		}
	}

	var weightedSum, appliedWeight float64
	result := model.FusionResult{
		SignalScores: make(map[model.Signal]float64, len(scores)),
	}

	for _, s := range model.SignalOrder {
		p, ok := scores[s]
		if !ok {
			result.Unavailable = append(result.Unavailable, s)
			continue
		}
		p = clamp(p)
		w := e.policy.Weights[s]
		weightedSum += p * w
		appliedWeight += w
		result.Available = append(result.Available, s)
		result.SignalScores[s] = round2(p * 100)
	}

	denominator := appliedWeight
	if !e.policy.Renormalize {
		denominator = e.policy.Weights.Total()
	}
	if denominator == 0 {
		return model.FusionResult{}, ErrZeroWeight
	}

	result.Probability = round2(weightedSum / denominator * 100)
	result.Label, result.Risk = e.policy.classify(result.Probability)

	return result, nil
}

// FuseScores is a convenience wrapper over a slice of SignalScore values.
// A signal appearing twice keeps its last value.
func (e *Engine) FuseScores(scores []model.SignalScore) (model.FusionResult, error) {
	m := make(map[model.Signal]float64, len(scores))
	for _, sc := range scores {
		m[sc.Name] = sc.Probability
	}
	return e.Fuse(m)
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// round2 rounds to two decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
