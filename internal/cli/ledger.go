package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/phishfuse/internal/export"
	"github.com/ppiankov/phishfuse/internal/model"
)

var (
	recentN    int
	statsJSON  bool
	recentJSON bool
	xlsxPath   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show scan counts reconstructed from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		l, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		st, err := l.Stats(ctx)
		if err != nil {
			return err
		}
		if !st.Consistent() {
			defer fmt.Fprintln(cmd.ErrOrStderr(), "warning: partition counts do not add up to the total; the ledger may contain torn rows")
		}
		out := cmd.OutOrStdout()
		if statsJSON {
			return json.NewEncoder(out).Encode(st)
		}
		fmt.Fprintf(out, "Total scans: %d\n", st.Total)
		fmt.Fprintf(out, "  Phishing:   %d\n", st.Phishing)
		fmt.Fprintf(out, "  Suspicious: %d\n", st.Suspicious)
		fmt.Fprintf(out, "  Legitimate: %d\n", st.Legitimate)
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		l, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		records, err := l.Recent(ctx, recentN)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if recentJSON {
			if records == nil {
				records = []model.ScanRecord{}
			}
			return json.NewEncoder(out).Encode(records)
		}
		for _, r := range records {
			fmt.Fprintf(out, "%s  %-10s %6.2f%%  %-6s  %s\n", r.Timestamp.Format(model.TimestampLayout), r.Label, r.Probability, r.Risk, r.URL)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger to a spreadsheet",
	Long: `Export writes the full scan history, one sheet per verdict partition
and a Stats sheet.

Example:
  phishfuse export --xlsx ledger.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		l, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		if err := export.WriteXLSX(ctx, l, xlsxPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported ledger: %s\n", xlsxPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, recentCmd, exportCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print stats as JSON")
	recentCmd.Flags().IntVarP(&recentN, "count", "n", 10, "number of scans to show")
	recentCmd.Flags().BoolVar(&recentJSON, "json", false, "print records as JSON")
	exportCmd.Flags().StringVar(&xlsxPath, "xlsx", "phishfuse-ledger.xlsx", "output XLSX path")
}
