package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/phishfuse/internal/features"
	"github.com/ppiankov/phishfuse/internal/model"
	"gopkg.in/yaml.v3"
)

// Model pairs a classifier with the feature order it was trained on
type Model struct {
	Features   []string
	Classifier Classifier
	Source     string // "builtin" or the file it was loaded from
}

// Registry is the read-only set of loaded models. It is built once at
// start-up and shared by concurrent scans without locking.
type Registry struct {
	models map[model.Signal]Model
}

// NewRegistry validates the models and returns a registry.
// Every signal in model.SignalOrder must have a model.
func NewRegistry(models map[model.Signal]Model) (*Registry, error) {
	r := &Registry{models: make(map[model.Signal]Model, len(models))}

	for _, s := range model.SignalOrder {
		m, ok := models[s]
		if !ok {
			return nil, fmt.Errorf("no model for signal %s", s)
		}
		if m.Classifier == nil {
			return nil, fmt.Errorf("model for signal %s has no classifier", s)
		}
		if m.Classifier.Arity() != len(m.Features) {
			return nil, fmt.Errorf("%s model: %w: %d features, classifier expects %d",
				s, ErrArityMismatch, len(m.Features), m.Classifier.Arity())
		}
		feats := make([]string, len(m.Features))
		copy(feats, m.Features)
		m.Features = feats
		r.models[s] = m
	}

	return r, nil
}

// Predict scores one signal's feature record
func (r *Registry) Predict(signal model.Signal, rec features.Record) (float64, error) {
	m, ok := r.models[signal]
	if !ok {
		return 0, fmt.Errorf("no model for signal %s", signal)
	}
	p, err := m.Classifier.PredictProba(rec.Vector(m.Features))
	if err != nil {
		return 0, fmt.Errorf("predict %s: %w", signal, err)
	}
	return p, nil
}

// Model returns the model registered for a signal
func (r *Registry) Model(signal model.Signal) (Model, bool) {
	m, ok := r.models[signal]
	return m, ok
}

// modelFile is the on-disk coefficient format
type modelFile struct {
	Signal   string    `yaml:"signal"`
	Kind     string    `yaml:"kind"`
	Features []string  `yaml:"features"`
	Weights  []float64 `yaml:"weights"`
	Bias     float64   `yaml:"bias"`
}

// LoadFile reads a logistic model from a YAML file
func LoadFile(path string) (model.Signal, Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", Model{}, fmt.Errorf("read model: %w", err)
	}

	var mf modelFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return "", Model{}, fmt.Errorf("parse model %s: %w", path, err)
	}

	signal, err := model.ParseSignal(mf.Signal)
	if err != nil {
		return "", Model{}, fmt.Errorf("model %s: %w", path, err)
	}
	if mf.Kind != "" && !strings.EqualFold(mf.Kind, "logistic") {
		return "", Model{}, fmt.Errorf("model %s: unsupported kind %q", path, mf.Kind)
	}
	if len(mf.Features) != len(mf.Weights) {
		return "", Model{}, fmt.Errorf("model %s: %w: %d features, %d weights",
			path, ErrArityMismatch, len(mf.Features), len(mf.Weights))
	}

	return signal, Model{
		Features:   mf.Features,
		Classifier: NewLogistic(mf.Weights, mf.Bias),
		Source:     path,
	}, nil
}

// LoadDir builds a registry from <signal>.yaml files in dir. Signals without
// a file keep their built-in model. An empty dir yields the built-ins.
func LoadDir(dir string) (*Registry, error) {
	models := Builtin()
	if dir == "" {
		return NewRegistry(models)
	}

	for _, s := range model.SignalOrder {
		path := filepath.Join(dir, strings.ToLower(string(s))+".yaml")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		signal, m, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if signal != s {
			return nil, fmt.Errorf("model %s declares signal %s, expected %s", path, signal, s)
		}
		models[s] = m
	}

	return NewRegistry(models)
}
