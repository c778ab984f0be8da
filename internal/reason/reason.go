// Package reason turns raw feature values and a fused verdict into short,
// human-readable explanations.
package reason

import (
	"sort"

	"github.com/ppiankov/phishfuse/internal/features"
	"github.com/ppiankov/phishfuse/internal/model"
)

// Reason strings. Kept as constants so callers and tests can match on them.
const (
	IPHost            = "URL uses a raw IP address instead of a domain name"
	CredentialKeyword = "URL contains a credential-related keyword"
	AtSymbol          = "URL contains an @ symbol that can hide the real destination"
	NoHTTPS           = "URL does not use HTTPS"
	ManySubdomains    = "URL has an unusually deep subdomain chain"
	DNSFailure        = "Domain does not resolve in DNS"
	PasswordInput     = "Page contains a password input field"
	HiddenIframe      = "Page embeds a hidden iframe"
	MetaRefresh       = "Page uses a meta refresh redirect"
	SuspiciousJS      = "Page contains obfuscated or redirecting JavaScript"
	HiddenInputs      = "Page contains many hidden form inputs"
	UrgencyText       = "Page text uses urgency or verification language"
	CrossOriginForm   = "Form submits credentials to a different domain"
	DegradedMode      = "Page content could not be analysed; verdict uses URL and network signals only"
	HighRiskVerdict   = "Combined signals indicate a high risk of phishing"
)

// Rule is one (signal, predicate, reason) entry. Signal is empty for rules
// that only look at the fused result.
type Rule struct {
	Signal model.Signal
	Match  func(rec features.Record, fused model.FusionResult) bool
	Reason string
}

func has(name string) func(features.Record, model.FusionResult) bool {
	return func(rec features.Record, _ model.FusionResult) bool {
		return rec.Has(name)
	}
}

func atLeast(name string, n float64) func(features.Record, model.FusionResult) bool {
	return func(rec features.Record, _ model.FusionResult) bool {
		return rec.Get(name) >= n
	}
}

// DefaultRules is the built-in rule table, evaluated in order
var DefaultRules = []Rule{
	{model.SignalURL, has("is_ip_address"), IPHost},
	{model.SignalURL, has("has_login_word"), CredentialKeyword},
	{model.SignalURL, has("has_at_symbol"), AtSymbol},
	{model.SignalURL, func(rec features.Record, _ model.FusionResult) bool { return !rec.Has("has_https") }, NoHTTPS},
	{model.SignalURL, atLeast("subdomain_count", 3), ManySubdomains},
	{model.SignalNetwork, func(rec features.Record, _ model.FusionResult) bool { return !rec.Has("dns_resolves") }, DNSFailure},
	{model.SignalHTML, atLeast("password_input_count", 1), PasswordInput},
	{model.SignalHTML, atLeast("hidden_iframe_count", 1), HiddenIframe},
	{model.SignalHTML, has("meta_refresh"), MetaRefresh},
	{model.SignalHTML, has("suspicious_js"), SuspiciousJS},
	{model.SignalHTML, atLeast("hidden_input_count", 5), HiddenInputs},
	{model.SignalNLP, has("has_urgent_words"), UrgencyText},
	{model.SignalBehavioral, atLeast("password_input_count", 1), PasswordInput},
	{model.SignalBehavioral, has("has_urgent_words"), UrgencyText},
	{model.SignalBehavioral, has("form_action_external"), CrossOriginForm},
	{"", func(_ features.Record, fused model.FusionResult) bool { return fused.Degraded() }, DegradedMode},
	{"", func(_ features.Record, fused model.FusionResult) bool { return fused.Risk == model.RiskHigh }, HighRiskVerdict},
}

// Extractor evaluates a rule table
type Extractor struct {
	rules []Rule
}

// NewExtractor creates an extractor. A nil table uses DefaultRules.
func NewExtractor(rules []Rule) *Extractor {
	if rules == nil {
		rules = DefaultRules
	}
	return &Extractor{rules: rules}
}

// Explain returns the deduplicated, sorted reasons triggered by the scan.
// Rules whose signal has no record are skipped.
func (e *Extractor) Explain(recs map[model.Signal]features.Record, fused model.FusionResult) []string {
	seen := make(map[string]struct{})

	for _, rule := range e.rules {
		var rec features.Record
		if rule.Signal != "" {
			r, ok := recs[rule.Signal]
			if !ok || r == nil {
				continue
			}
			rec = r
		}
		if matches(rule, rec, fused) {
			seen[rule.Reason] = struct{}{}
		}
	}

	reasons := make([]string, 0, len(seen))
	for r := range seen {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	return reasons
}

// matches evaluates one predicate; a panicking predicate counts as no match
func matches(rule Rule, rec features.Record, fused model.FusionResult) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return rule.Match(rec, fused)
}
