// Package classifier holds the trained per-signal models used by a scan.
package classifier

import (
	"errors"
	"fmt"
	"math"
)

// ErrArityMismatch means a feature vector does not match the model's
// training-time arity. It indicates a schema/model mismatch and is fatal.
var ErrArityMismatch = errors.New("feature vector arity mismatch")

// Classifier is an opaque trained model
type Classifier interface {
	// PredictProba returns the probability of the positive (phishing) class
	PredictProba(vector []float64) (float64, error)

	// Arity is the vector length the model was trained on
	Arity() int
}

// Logistic is a linear model with a sigmoid link
type Logistic struct {
	Weights []float64
	Bias    float64
}

// NewLogistic creates a logistic classifier
func NewLogistic(weights []float64, bias float64) *Logistic {
	w := make([]float64, len(weights))
	copy(w, weights)
	return &Logistic{Weights: w, Bias: bias}
}

// Arity returns the number of weights
func (l *Logistic) Arity() int {
	return len(l.Weights)
}

// PredictProba computes sigmoid(bias + w·x)
func (l *Logistic) PredictProba(vector []float64) (float64, error) {
	if len(vector) != len(l.Weights) {
		return 0, fmt.Errorf("%w: got %d features, model expects %d", ErrArityMismatch, len(vector), len(l.Weights))
	}

	z := l.Bias
	for i, x := range vector {
		z += l.Weights[i] * x
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
