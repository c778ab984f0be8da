package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/phishfuse/internal/cache"
	"github.com/ppiankov/phishfuse/internal/classifier"
	"github.com/ppiankov/phishfuse/internal/fusion"
	"github.com/ppiankov/phishfuse/internal/intel"
	"github.com/ppiankov/phishfuse/internal/ledger"
	"github.com/ppiankov/phishfuse/internal/llm"
	"github.com/ppiankov/phishfuse/internal/model"
	"github.com/ppiankov/phishfuse/internal/pipeline"
)

// buildPipeline wires the registry, fusion engine, ledger, intel collector and
// summarizer from cfg. The caller closes the returned ledger.
func buildPipeline(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*pipeline.Pipeline, ledger.Ledger, error) {
	registry, err := classifier.LoadDir(cfg.Models.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load models: %w", err)
	}

	policy, err := fusion.PolicyFromConfig(cfg.Fusion)
	if err != nil {
		return nil, nil, fmt.Errorf("fusion policy: %w", err)
	}
	engine, err := fusion.NewEngine(policy)
	if err != nil {
		return nil, nil, err
	}

	l, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLedger(l),
		pipeline.WithLogger(logger),
	}

	if cfg.Intel.Enabled {
		opts = append(opts, pipeline.WithIntel(intel.NewCollector(cfg.Intel.Timeout, cache.New(cfg.Cache), logger)))
	}

	if cfg.LLM.Provider != "" {
		summarizer, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			_ = l.Close()
			return nil, nil, fmt.Errorf("LLM: %w", err)
		}
		opts = append(opts, pipeline.WithSummarizer(summarizer))
	}

	return pipeline.NewPipeline(cfg.HTTP, registry, engine, opts...), l, nil
}

// openLedger opens only the ledger, for read commands
func openLedger(ctx context.Context) (ledger.Ledger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return l, nil
}
