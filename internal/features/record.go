// Package features converts raw scan inputs into fixed-schema numeric records.
// Every extractor is total: malformed input yields zeros, never an error.
package features

// Record is one modality's raw features, keyed by feature name
type Record map[string]float64

// Get returns the named feature, or 0 if it was not extracted
func (r Record) Get(name string) float64 {
	if r == nil {
		return 0
	}
	return r[name]
}

// Has reports whether a boolean-style feature is set
func (r Record) Has(name string) bool {
	return r.Get(name) > 0
}

// Vector returns the features in the given order, defaulting unknown names to 0
func (r Record) Vector(order []string) []float64 {
	vec := make([]float64, len(order))
	for i, name := range order {
		vec[i] = r.Get(name)
	}
	return vec
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Feature orders match the schemas the built-in classifiers were fitted on.
var (
	URLFeatures = []string{
		"url_length", "count_dots", "count_hyphen", "count_slash", "count_question",
		"count_equal", "has_at_symbol", "has_https", "has_login_word", "subdomain_count",
		"is_ip_address", "path_length", "digit_count",
	}

	NetworkFeatures = []string{
		"domain_length", "num_subdomains", "has_ip_address", "dns_resolves", "uses_https",
	}

	HTMLFeatures = []string{
		"form_count", "password_input_count", "iframe_count", "external_link_count",
		"has_suspicious_words", "html_length", "script_count", "hidden_input_count",
		"meta_refresh", "suspicious_js",
	}

	NLPFeatures = []string{
		"text_length", "word_count", "urgency_word_count", "credential_word_count", "has_urgent_words",
	}

	BehavioralFeatures = []string{
		"has_login_form", "password_input_count", "has_submit_button", "hidden_input_count",
		"has_urgent_words", "has_meta_refresh", "form_action_external",
	}
)
