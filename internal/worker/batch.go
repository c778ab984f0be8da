package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/phishfuse/internal/model"
)

// Scanner scans one URL. *pipeline.Pipeline satisfies it.
type Scanner interface {
	Scan(ctx context.Context, rawURL string, prefetchedHTML string) (*model.Report, error)
}

// ScanJob scans one URL after waiting for its host's rate limit
type ScanJob struct {
	Pos     int
	URL     string
	Scanner Scanner
	Limiter *Limiter
}

// Index implements Job
func (j *ScanJob) Index() int { return j.Pos }

// Execute implements Job
func (j *ScanJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.URL); err != nil {
			return &ScanResult{Pos: j.Pos, URL: j.URL, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}
	report, err := j.Scanner.Scan(ctx, j.URL, "")
	return &ScanResult{Pos: j.Pos, URL: j.URL, Report: report, Error: err}
}

// ScanResult is the outcome of one ScanJob
type ScanResult struct {
	Pos    int
	URL    string
	Report *model.Report
	Error  error
}

// Index implements Result
func (r *ScanResult) Index() int { return r.Pos }

// Err implements Result
func (r *ScanResult) Err() error { return r.Error }

// Summary counts batch outcomes by verdict
type Summary struct {
	Total      int
	Failed     int
	Phishing   int
	Suspicious int
	Legitimate int
	Degraded   int
}

// Summarize tallies results
func Summarize(results []*ScanResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Error != nil || r.Report == nil {
			s.Failed++
			continue
		}
		switch r.Report.FinalLabel {
		case model.LabelPhishing:
			s.Phishing++
		case model.LabelSuspicious:
			s.Suspicious++
		default:
			s.Legitimate++
		}
		if r.Report.Degraded {
			s.Degraded++
		}
	}
	return s
}

// BatchProcessor scans many URLs on a worker pool
type BatchProcessor struct {
	scanner     Scanner
	concurrency int
	limiter     *Limiter
	onResult    func(*ScanResult)
}

// NewBatchProcessor creates a processor. requestsPerSecond <= 0 disables
// per-domain limiting.
func NewBatchProcessor(scanner Scanner, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	return &BatchProcessor{
		scanner:     scanner,
		concurrency: concurrency,
		limiter:     NewLimiter(requestsPerSecond, burst),
	}
}

// OnResult registers a callback invoked as each scan completes. Calls are
// serialized.
func (b *BatchProcessor) OnResult(fn func(*ScanResult)) {
	b.onResult = fn
}

// ProcessURLs scans urls and returns results in input order. URLs never
// submitted because ctx was cancelled come back with ctx's error.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*ScanResult {
	results := make([]*ScanResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, u := range urls {
			if !pool.Submit(&ScanJob{Pos: i, URL: u, Scanner: b.scanner, Limiter: b.limiter}) {
				return
			}
		}
	}()

	for res := range pool.Results() {
		sr := res.(*ScanResult)
		results[sr.Pos] = sr
		if b.onResult != nil {
			b.onResult(sr)
		}
	}

	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = &ScanResult{Pos: i, URL: urls[i], Error: err}
		}
	}
	return results
}

// ProcessFile reads URLs from a file and scans them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ScanResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}
	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file (one per line). "-" reads stdin.
func ReadURLsFromFile(filePath string) ([]string, error) {
	if filePath == "-" {
		return ReadURLs(os.Stdin)
	}
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ReadURLs(file)
}

// ReadURLs reads one URL per line, skipping blanks, # comments and duplicates
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return urls, nil
}
