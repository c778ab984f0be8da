package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/phishfuse/internal/pipeline"
	"github.com/ppiankov/phishfuse/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scan URLs from a file in parallel",
	Long: `Batch scans every URL in a file (one per line, # comments allowed, "-"
for stdin) on a worker pool. Fetches are rate limited per domain. Every
verdict is appended to the ledger; with --output-dir a JSON report is
written per URL.

Example:
  phishfuse batch urls.txt
  phishfuse batch urls.txt --concurrency 8 --output-dir ./reports
  cat urls.txt | phishfuse batch -`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write one JSON report per URL here")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 30*time.Minute, "total timeout for the batch")
	addScanFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	urls, err := worker.ReadURLsFromFile(args[0])
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs found in %s", args[0])
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	logger := newLogger(cfg.Output.Verbose)
	p, l, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Scanning %d URLs with %d workers\n\n", len(urls), cfg.Concurrency.Workers)

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	var done atomic.Int32
	processor.OnResult(func(r *worker.ScanResult) {
		n := done.Add(1)
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] ✗ %s: %v\n", n, len(urls), r.URL, r.Error)
			return
		}
		fmt.Fprintf(os.Stderr, "[%d/%d] %-10s %6.2f%%  %s\n", n, len(urls), r.Report.FinalLabel, r.Report.Probability, r.URL)
		if outputDir != "" {
			path := filepath.Join(outputDir, reportFileName(r.Pos, r.URL))
			if err := renderer.RenderJSON(r.Report, path); err != nil {
				fmt.Fprintf(os.Stderr, "  warning: %v\n", err)
			}
		}
	})

	start := time.Now()
	results := processor.ProcessURLs(ctx, urls)
	s := worker.Summarize(results)

	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Done in %s: %d scanned, %d failed\n", time.Since(start).Round(time.Millisecond), s.Total-s.Failed, s.Failed)
	fmt.Fprintf(os.Stderr, "  Phishing: %d  Suspicious: %d  Legitimate: %d  (degraded: %d)\n", s.Phishing, s.Suspicious, s.Legitimate, s.Degraded)

	if s.Failed == s.Total {
		return fmt.Errorf("all %d scans failed", s.Total)
	}
	return nil
}

// reportFileName derives a filesystem-safe name from the URL
func reportFileName(pos int, rawURL string) string {
	name := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, name)
	if len(name) > 80 {
		name = name[:80]
	}
	return fmt.Sprintf("%04d_%s.json", pos+1, name)
}
