package pipeline

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/phishfuse/internal/model"
	"github.com/ppiankov/phishfuse/internal/util"
)

// ErrDisallowedByRobots is returned when respect_robots is on and robots.txt forbids the page
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// Fetcher retrieves a page once, bounded by a fixed timeout. There is no
// retry: a failed fetch puts the scan into degraded mode.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker // nil unless respect_robots
}

// NewFetcher creates a Fetcher from the HTTP configuration
func NewFetcher(cfg model.HTTPConfig) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for scanning sites with broken certificates
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}
	return f
}

// FetchResult contains the fetched HTML and metadata
type FetchResult struct {
	HTML string
	Meta model.FetchMeta
}

// Fetch retrieves HTML content from the given URL. On error the returned
// metadata still records what was attempted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	meta := model.FetchMeta{Attempted: true}

	if f.robots != nil {
		if allowed, _, _ := f.robots.CanFetch(ctx, rawURL); !allowed {
			meta.Error = ErrDisallowedByRobots.Error()
			return &FetchResult{Meta: meta}, ErrDisallowedByRobots
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		meta.Error = err.Error()
		return &FetchResult{Meta: meta}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		meta.Error = err.Error()
		return &FetchResult{Meta: meta}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	meta.StatusCode = resp.StatusCode
	meta.ContentType = resp.Header.Get("Content-Type")
	meta.FinalURL = resp.Request.URL.String()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		meta.Error = err.Error()
		return &FetchResult{Meta: meta}, err
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		meta.Error = err.Error()
		return &FetchResult{Meta: meta}, fmt.Errorf("read body after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}
	meta.Bytes = len(body)

	return &FetchResult{HTML: string(body), Meta: meta}, nil
}
