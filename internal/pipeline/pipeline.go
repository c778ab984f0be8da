// Package pipeline runs one scan end to end: fetch, feature extraction,
// classification, fusion, reasons, ledger append and report assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/phishfuse/internal/classifier"
	"github.com/ppiankov/phishfuse/internal/features"
	"github.com/ppiankov/phishfuse/internal/fusion"
	"github.com/ppiankov/phishfuse/internal/intel"
	"github.com/ppiankov/phishfuse/internal/ledger"
	"github.com/ppiankov/phishfuse/internal/llm"
	"github.com/ppiankov/phishfuse/internal/model"
	"github.com/ppiankov/phishfuse/internal/reason"
)

// ErrInvalidURL is returned for input that has no usable host
var ErrInvalidURL = errors.New("invalid URL")

// ledgerTimeout bounds the ledger append once a verdict exists. The append
// does not follow request cancellation.
const ledgerTimeout = 10 * time.Second

// Pipeline orchestrates the complete scan process. It holds only read-only
// state besides the ledger, so one Pipeline serves concurrent scans.
type Pipeline struct {
	fetcher    *Fetcher
	network    *features.NetworkExtractor
	registry   *classifier.Registry
	engine     *fusion.Engine
	reasons    *reason.Extractor
	ledger     ledger.Ledger    // nil: nothing recorded
	intel      *intel.Collector // nil: domain intel skipped
	summarizer *llm.Summarizer  // nil: no narrative
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithLedger records every verdict
func WithLedger(l ledger.Ledger) Option {
	return func(p *Pipeline) { p.ledger = l }
}

// WithIntel collects WHOIS/TLS facts alongside each scan
func WithIntel(c *intel.Collector) Option {
	return func(p *Pipeline) { p.intel = c }
}

// WithSummarizer adds an LLM explanation after the verdict
func WithSummarizer(s *llm.Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

// WithResolver replaces the DNS resolver used by the network signal
func WithResolver(r features.Resolver, timeout time.Duration) Option {
	return func(p *Pipeline) { p.network = features.NewNetworkExtractor(r, timeout) }
}

// WithFetcher replaces the page fetcher
func WithFetcher(f *Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock sets the time source for scan timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline from the HTTP configuration, a classifier
// registry and a fusion engine
func NewPipeline(httpCfg model.HTTPConfig, registry *classifier.Registry, engine *fusion.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:  NewFetcher(httpCfg),
		network:  features.NewNetworkExtractor(nil, httpCfg.DNSTimeout),
		registry: registry,
		engine:   engine,
		reasons:  reason.NewExtractor(nil),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scan evaluates rawURL. If prefetchedHTML is non-empty it is used instead of
// fetching. A failed fetch degrades the scan to the mandatory signals; a
// ledger failure is logged and reported but never fails the scan.
func (p *Pipeline) Scan(ctx context.Context, rawURL string, prefetchedHTML string) (*model.Report, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	// Domain intel runs on its own, bounded by the collector timeout
	intelCh := make(chan model.DomainInfo, 1)
	if p.intel != nil {
		go func() { intelCh <- p.intel.Collect(ctx, target) }()
	} else {
		intelCh <- model.UnknownDomainInfo()
	}

	records := make(map[model.Signal]features.Record, len(model.SignalOrder))
	scores := make(map[model.Signal]float64, len(model.SignalOrder))

	var fetched *FetchResult
	var fetchErr error

	g, gctx := errgroup.WithContext(ctx)
	if prefetchedHTML == "" {
		g.Go(func() error {
			fetched, fetchErr = p.fetcher.Fetch(gctx, target)
			return nil
		})
	}

	// mandatory signals share no data with the fetch
	var urlRec, netRec features.Record
	var urlProb, netProb float64
	g.Go(func() error {
		urlRec = features.ExtractURL(target)
		prob, err := p.registry.Predict(model.SignalURL, urlRec)
		if err != nil {
			return err
		}
		urlProb = prob
		return nil
	})
	g.Go(func() error {
		netRec = p.network.Extract(gctx, target)
		prob, err := p.registry.Predict(model.SignalNetwork, netRec)
		if err != nil {
			return err
		}
		netProb = prob
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	records[model.SignalURL], scores[model.SignalURL] = urlRec, urlProb
	records[model.SignalNetwork], scores[model.SignalNetwork] = netRec, netProb

	meta, content := p.pageContent(target, prefetchedHTML, fetched, fetchErr)
	if content != "" {
		base := target
		if meta.FinalURL != "" {
			base = meta.FinalURL
		}
		page := features.ParsePage(content, base)

		extractors := []struct {
			signal  model.Signal
			extract func(*features.Page) features.Record
		}{
			{model.SignalHTML, features.ExtractHTML},
			{model.SignalNLP, features.ExtractNLP},
			{model.SignalBehavioral, features.ExtractBehavioral},
		}
		for _, ex := range extractors {
			rec := ex.extract(page)
			prob, err := p.registry.Predict(ex.signal, rec)
			if err != nil {
				return nil, fmt.Errorf("classify: %w", err)
			}
			records[ex.signal], scores[ex.signal] = rec, prob
		}
	}

	fused, err := p.engine.Fuse(scores)
	if err != nil {
		return nil, fmt.Errorf("fuse: %w", err)
	}

	at := p.now()
	report := model.NewReport(target, at, fused, p.reasons.Explain(records, fused))
	report.Fetch = meta

	p.logger.Debug("scan fused",
		"url", target,
		"label", fused.Label,
		"probability", fused.Probability,
		"degraded", fused.Degraded())

	if p.ledger != nil {
		appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
		err := p.ledger.Append(appendCtx, model.NewScanRecord(at, target, fused))
		cancel()
		if err != nil {
			p.logger.Error("ledger append failed", "url", target, "error", err)
			report.LedgerError = err.Error()
		}
	}

	select {
	case info := <-intelCh:
		report.DomainIntel = info
	case <-ctx.Done():
	}

	// narrative comes last and never touches the verdict
	if p.summarizer.IsEnabled() {
		summary, err := p.summarizer.GenerateSummary(ctx, *report)
		if err != nil {
			p.logger.Warn("LLM summary generation failed", "error", err)
			report.LLM = &model.LLMSummary{Enabled: true, Provider: p.summarizer.ProviderName(), Warnings: []string{err.Error()}}
		} else {
			report.LLM = summary
		}
	}

	return report, nil
}

// pageContent decides what HTML the content signals see and what fetch
// metadata goes in the report
func (p *Pipeline) pageContent(target, prefetched string, fetched *FetchResult, fetchErr error) (model.FetchMeta, string) {
	if prefetched != "" {
		meta := model.FetchMeta{Prefetched: true, Bytes: len(prefetched)}
		if strings.TrimSpace(prefetched) == "" {
			meta.Error = "empty response body"
			return meta, ""
		}
		return meta, prefetched
	}

	var meta model.FetchMeta
	if fetched != nil {
		meta = fetched.Meta
	}
	meta.Attempted = true

	if fetchErr != nil {
		p.logger.Info("fetch failed, using mandatory signals only", "url", target, "error", fetchErr)
		if meta.Error == "" {
			meta.Error = fetchErr.Error()
		}
		return meta, ""
	}
	if fetched == nil || strings.TrimSpace(fetched.HTML) == "" {
		meta.Error = "empty response body"
		return meta, ""
	}
	return meta, fetched.HTML
}

// NormalizeURL trims input and adds http:// when no scheme is given
func NormalizeURL(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return s, nil
}
