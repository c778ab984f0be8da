package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/phishfuse/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scans and ledger queries over HTTP",
	Long: `Serve exposes:
  POST /scan      {"url": "...", "html": "..."}  -> report
  GET  /stats                                    -> ledger counts
  GET  /recent?n=10                              -> most recent scans
  GET  /healthz

Example:
  phishfuse serve --addr :8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyScanFlags(cmd, cfg)
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := newLogger(cfg.Output.Verbose)
		p, l, err := buildPipeline(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		scanTimeout := cfg.HTTP.Timeout + cfg.Intel.Timeout + time.Duration(cfg.LLM.Timeout)*time.Second
		fmt.Fprintf(os.Stderr, "Listening on %s (ledger: %s)\n", cfg.Server.Addr, cfg.Ledger.Backend)
		srv := server.New(p, l, logger, scanTimeout)
		return server.ListenAndServe(ctx, cfg.Server.Addr, srv.Routes(), logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	addScanFlags(serveCmd)
}
