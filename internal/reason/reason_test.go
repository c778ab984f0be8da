package reason

import (
	"testing"

	"github.com/ppiankov/phishfuse/internal/features"
	"github.com/ppiankov/phishfuse/internal/model"
)

func contains(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func TestExplain_PhishingPage(t *testing.T) {
	recs := map[model.Signal]features.Record{
		model.SignalURL:        {"is_ip_address": 1, "has_login_word": 1, "has_https": 0},
		model.SignalNetwork:    {"dns_resolves": 0},
		model.SignalHTML:       {"password_input_count": 1},
		model.SignalNLP:        {"has_urgent_words": 1},
		model.SignalBehavioral: {"password_input_count": 1, "has_urgent_words": 1, "form_action_external": 1},
	}
	fused := model.FusionResult{Risk: model.RiskHigh, Label: model.LabelPhishing}

	reasons := NewExtractor(nil).Explain(recs, fused)

	for _, want := range []string{IPHost, CredentialKeyword, NoHTTPS, DNSFailure, PasswordInput, UrgencyText, CrossOriginForm, HighRiskVerdict} {
		if !contains(reasons, want) {
			t.Errorf("expected reason %q in %v", want, reasons)
		}
	}
}

func TestExplain_Deduplicates(t *testing.T) {
	recs := map[model.Signal]features.Record{
		model.SignalHTML:       {"password_input_count": 2},
		model.SignalBehavioral: {"password_input_count": 2},
	}

	reasons := NewExtractor(nil).Explain(recs, model.FusionResult{})

	n := 0
	for _, r := range reasons {
		if r == PasswordInput {
			n++
		}
	}
	if n != 1 {
		t.Errorf("expected password reason once, got %d times in %v", n, reasons)
	}
}

func TestExplain_MissingRecordsSkipRules(t *testing.T) {
	recs := map[model.Signal]features.Record{
		model.SignalURL:     {"has_https": 1},
		model.SignalNetwork: {"dns_resolves": 1},
	}

	reasons := NewExtractor(nil).Explain(recs, model.FusionResult{Risk: model.RiskLow})
	if len(reasons) != 0 {
		t.Errorf("expected no reasons for clean URL without page, got %v", reasons)
	}

	if got := NewExtractor(nil).Explain(nil, model.FusionResult{}); len(got) != 0 {
		t.Errorf("expected no reasons for empty input, got %v", got)
	}
}

func TestExplain_DegradedNote(t *testing.T) {
	fused := model.FusionResult{
		Available:   []model.Signal{model.SignalURL, model.SignalNetwork},
		Unavailable: []model.Signal{model.SignalHTML, model.SignalNLP, model.SignalBehavioral},
	}

	reasons := NewExtractor(nil).Explain(nil, fused)
	if !contains(reasons, DegradedMode) {
		t.Errorf("expected degraded-mode reason, got %v", reasons)
	}
}

func TestExplain_Sorted(t *testing.T) {
	recs := map[model.Signal]features.Record{
		model.SignalURL: {"is_ip_address": 1, "has_at_symbol": 1, "has_login_word": 1},
	}

	reasons := NewExtractor(nil).Explain(recs, model.FusionResult{})
	for i := 1; i < len(reasons); i++ {
		if reasons[i-1] > reasons[i] {
			t.Fatalf("reasons not sorted: %v", reasons)
		}
	}
}

func TestExplain_PanickingRuleSkipped(t *testing.T) {
	rules := []Rule{
		{model.SignalURL, func(features.Record, model.FusionResult) bool { panic("boom") }, "never"},
		{model.SignalURL, has("is_ip_address"), IPHost},
	}

	reasons := NewExtractor(rules).Explain(map[model.Signal]features.Record{
		model.SignalURL: {"is_ip_address": 1},
	}, model.FusionResult{})

	if len(reasons) != 1 || reasons[0] != IPHost {
		t.Errorf("expected only %q, got %v", IPHost, reasons)
	}
}
