package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestProductToken(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"Mozilla/5.0 (compatible; phishfuse/0.3; +https://github.com/ppiankov/phishfuse)", "phishfuse"},
		{"curl/8.4.0", "curl"},
		{"phishfuse", "phishfuse"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ProductToken(tt.ua); got != tt.want {
			t.Errorf("ProductToken(%q) = %q, want %q", tt.ua, got, tt.want)
		}
	}
}

func TestRobotsChecker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("unexpected request %s", r.URL.Path)
		}
		hits.Add(1)
		_, _ = fmt.Fprint(w, "User-agent: phishfuse\nDisallow: /private\nCrawl-delay: 2\n")
	}))
	defer server.Close()

	rc := NewRobotsChecker("Mozilla/5.0 (compatible; phishfuse/0.3)", 2*time.Second)
	ctx := context.Background()

	allowed, delay, err := rc.CanFetch(ctx, server.URL+"/private/page")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Error("expected /private to be disallowed")
	}
	if delay != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %s", delay)
	}

	if allowed, _, _ := rc.CanFetch(ctx, server.URL+"/public"); !allowed {
		t.Error("expected /public to be allowed")
	}
	if hits.Load() != 1 {
		t.Errorf("expected robots.txt fetched once, got %d", hits.Load())
	}
}

func TestRobotsChecker_MissingAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	rc := NewRobotsChecker("phishfuse", time.Second)
	if allowed, _, _ := rc.CanFetch(context.Background(), server.URL+"/anything"); !allowed {
		t.Error("expected missing robots.txt to allow fetch")
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "http://secure-proxy.internal:3128", "skip.example")

	tests := []struct {
		target string
		want   string
	}{
		{"http://site.example/", "http://proxy.internal:3128"},
		{"https://site.example/", "http://secure-proxy.internal:3128"},
		{"https://skip.example/", ""},
	}

	for _, tt := range tests {
		u, _ := url.Parse(tt.target)
		got, err := proxy(&http.Request{URL: u})
		if err != nil {
			t.Fatalf("%s: %v", tt.target, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("%s: proxy = %q, want %q", tt.target, gotStr, tt.want)
		}
	}
}
