package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/phishfuse/internal/model"
	"github.com/ppiankov/phishfuse/internal/pipeline"
)

var (
	htmlFile      string
	outJSON       string
	outMD         string
	timeout       time.Duration
	userAgent     string
	maxBytes      int64
	noCache       bool
	noIntel       bool
	noFooter      bool
	insecureTLS   bool
	respectRobots bool
	httpProxy     string
	httpsProxy    string
	llmProvider   string
	llmModel      string
)

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Scan a single URL and print its phishing verdict",
	Long: `Scan fetches the page (once), extracts URL, network, HTML, text and form
behavior features, fuses the classifier probabilities into a verdict and
appends it to the ledger.

Example:
  phishfuse scan https://paypal-login.example.com
  phishfuse scan example.com --json report.json --md report.md
  phishfuse scan https://x.example --html saved-page.html
  phishfuse scan https://x.example --llm openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&htmlFile, "html", "", "use saved HTML from this file instead of fetching")
	scanCmd.Flags().StringVar(&outJSON, "json", "", "write JSON report to path")
	scanCmd.Flags().StringVar(&outMD, "md", "", "write Markdown report to path")
	addScanFlags(scanCmd)
}

// addScanFlags registers flags shared by scan, batch and serve
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "page fetch timeout (default from config)")
	cmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "max response bytes to read")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the domain intel cache")
	cmd.Flags().BoolVar(&noIntel, "no-intel", false, "skip WHOIS/TLS collection")
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	cmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification when fetching")
	cmd.Flags().BoolVar(&respectRobots, "respect-robots", false, "do not fetch pages robots.txt disallows")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	cmd.Flags().StringVar(&llmProvider, "llm", "", "LLM provider for an explanation (openai, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// applyScanFlags overlays explicitly set flags on the loaded config
func applyScanFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = timeout
	}
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flags.Changed("max-bytes") {
		cfg.HTTP.MaxBodyBytes = maxBytes
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noIntel {
		cfg.Intel.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
	if respectRobots {
		cfg.HTTP.RespectRobots = true
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel
		if cfg.LLM.APIKey == "" && llmProvider == "openai" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	var prefetched string
	if htmlFile != "" {
		data, err := os.ReadFile(htmlFile)
		if err != nil {
			return fmt.Errorf("read HTML: %w", err)
		}
		prefetched = string(data)
	}

	logger := newLogger(cfg.Output.Verbose)

	// fetch, intel and the LLM each have their own bound; this caps the whole scan
	budget := cfg.HTTP.Timeout + cfg.Intel.Timeout + time.Duration(cfg.LLM.Timeout)*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	p, l, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "Ledger: %s\n", cfg.Ledger.Backend)
		fmt.Fprintln(os.Stderr)
	}

	report, err := p.Scan(ctx, args[0], prefetched)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ %d of %d signals available\n", len(report.AvailableSignals), len(model.SignalOrder))
		fmt.Fprintf(os.Stderr, "✓ Fused probability: %.2f%%\n", report.Probability)
		if report.LedgerError == "" {
			fmt.Fprintf(os.Stderr, "✓ Recorded in ledger\n")
		}
		if report.LLM != nil && report.LLM.SummaryMD != "" {
			fmt.Fprintf(os.Stderr, "✓ Generated LLM explanation using %s/%s\n", report.LLM.Provider, report.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	return renderReport(pipeline.NewRenderer(cfg.Output.IncludeFooter), report, outJSON, outMD)
}

func renderReport(r *pipeline.Renderer, report *model.Report, jsonPath, mdPath string) error {
	r.RenderSummary(os.Stdout, report)
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", jsonPath)
	}
	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render Markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report: %s\n", mdPath)
	}
	return nil
}
