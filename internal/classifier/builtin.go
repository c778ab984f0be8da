package classifier

import (
	"github.com/ppiankov/phishfuse/internal/features"
	"github.com/ppiankov/phishfuse/internal/model"
)

// Builtin returns the shipped coefficients, one logistic model per signal.
// Weights are in feature order (see the features package).
func Builtin() map[model.Signal]Model {
	return map[model.Signal]Model{
		model.SignalURL: {
			Features: features.URLFeatures,
			// url_length, dots, hyphen, slash, question, equal, @, https,
			// login_word, subdomains, ip, path_length, digits
			Classifier: NewLogistic([]float64{
				0.015, 0.25, 0.30, 0.05, 0.20, 0.10, 1.50, -0.80,
				1.60, 0.45, 2.00, 0.005, 0.04,
			}, -3.0),
			Source: "builtin",
		},
		model.SignalNetwork: {
			Features: features.NetworkFeatures,
			// domain_length, subdomains, ip, dns_resolves, https
			Classifier: NewLogistic([]float64{0.03, 0.40, 2.20, -2.00, -0.90}, 0.3),
			Source:     "builtin",
		},
		model.SignalHTML: {
			Features: features.HTMLFeatures,
			// forms, passwords, iframes, external_links, suspicious_words,
			// html_length, scripts, hidden_inputs, meta_refresh, suspicious_js
			Classifier: NewLogistic([]float64{
				0.40, 1.20, 0.30, 0.02, 0.60, -0.00001, -0.02, 0.15, 1.00, 0.90,
			}, -2.2),
			Source: "builtin",
		},
		model.SignalNLP: {
			Features: features.NLPFeatures,
			// text_length, word_count, urgency_words, credential_words, has_urgent
			Classifier: NewLogistic([]float64{-0.0002, 0, 0.50, 0.35, 0.80}, -2.0),
			Source:     "builtin",
		},
		model.SignalBehavioral: {
			Features: features.BehavioralFeatures,
			// login_form, passwords, submit, hidden_inputs, urgent,
			// meta_refresh, external_action
			Classifier: NewLogistic([]float64{0.50, 1.30, 0.20, 0.15, 0.70, 0.90, 2.20}, -2.5),
			Source:     "builtin",
		},
	}
}
