package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/phishfuse/internal/model"
)

type mockScanner struct {
	delay time.Duration
	fail  map[string]bool
	calls atomic.Int32
}

func (m *mockScanner) Scan(ctx context.Context, rawURL string, prefetchedHTML string) (*model.Report, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail[rawURL] {
		return nil, errors.New("scan error")
	}
	label := model.LabelLegitimate
	if strings.Contains(rawURL, "phish") {
		label = model.LabelPhishing
	}
	return &model.Report{URL: rawURL, FinalLabel: label}, nil
}

func TestBatchProcessor_ProcessURLs_Order(t *testing.T) {
	scanner := &mockScanner{delay: 5 * time.Millisecond}
	processor := NewBatchProcessor(scanner, 3, 0, 0)

	urls := []string{"http://a.example", "http://b.example", "http://phish.example", "http://c.example", "http://d.example"}
	results := processor.ProcessURLs(context.Background(), urls)

	if len(results) != len(urls) {
		t.Fatalf("expected %d results, got %d", len(urls), len(results))
	}
	for i, res := range results {
		if res.URL != urls[i] {
			t.Errorf("result %d is for %s, want %s", i, res.URL, urls[i])
		}
		if res.Error != nil || res.Report == nil {
			t.Errorf("unexpected failure for %s: %v", res.URL, res.Error)
		}
	}
}

func TestBatchProcessor_Errors(t *testing.T) {
	scanner := &mockScanner{fail: map[string]bool{"http://bad.example": true}}
	processor := NewBatchProcessor(scanner, 2, 0, 0)

	results := processor.ProcessURLs(context.Background(), []string{"http://ok.example", "http://bad.example"})
	if results[0].Error != nil {
		t.Errorf("unexpected error: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error for bad URL")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockScanner{}, 2, 0, 0)
	if results := processor.ProcessURLs(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_OnResult(t *testing.T) {
	processor := NewBatchProcessor(&mockScanner{}, 4, 0, 0)

	var mu sync.Mutex
	var seen []string
	processor.OnResult(func(r *ScanResult) {
		mu.Lock()
		seen = append(seen, r.URL)
		mu.Unlock()
	})

	processor.ProcessURLs(context.Background(), []string{"http://a.example", "http://b.example", "http://c.example"})
	if len(seen) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(seen))
	}
}

func TestBatchProcessor_RateLimitsSameHost(t *testing.T) {
	processor := NewBatchProcessor(&mockScanner{}, 4, 20, 1)

	start := time.Now()
	processor.ProcessURLs(context.Background(), []string{
		"http://same.example/1", "http://same.example/2", "http://same.example/3",
	})
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected same-host scans to be rate limited, took %v", elapsed)
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	scanner := &mockScanner{delay: 50 * time.Millisecond}
	processor := NewBatchProcessor(scanner, 1, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = "http://example.com/" + string(rune('a'+i))
	}
	results := processor.ProcessURLs(ctx, urls)

	if len(results) != len(urls) {
		t.Fatalf("expected a result slot per URL, got %d", len(results))
	}
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if failed == 0 {
		t.Error("expected cancelled scans to report errors")
	}
}

func TestSummarize(t *testing.T) {
	results := []*ScanResult{
		{Report: &model.Report{FinalLabel: model.LabelPhishing}},
		{Report: &model.Report{FinalLabel: model.LabelSuspicious, Degraded: true}},
		{Report: &model.Report{FinalLabel: model.LabelLegitimate}},
		{Error: errors.New("boom")},
	}
	s := Summarize(results)
	want := Summary{Total: 4, Failed: 1, Phishing: 1, Suspicious: 1, Legitimate: 1, Degraded: 1}
	if s != want {
		t.Errorf("Summarize = %+v, want %+v", s, want)
	}
}

func TestReadURLsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "http://a.example\n\n# comment\n  http://b.example  \nhttp://a.example\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		t.Fatalf("ReadURLsFromFile: %v", err)
	}
	if len(urls) != 2 || urls[0] != "http://a.example" || urls[1] != "http://b.example" {
		t.Errorf("unexpected URLs: %v", urls)
	}

	if _, err := ReadURLsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
