// Package export writes ledger contents to spreadsheets.
package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/phishfuse/internal/ledger"
	"github.com/ppiankov/phishfuse/internal/model"
)

// Sheet names
const (
	SheetHistory    = "History"
	SheetPhishing   = "Phishing"
	SheetLegitimate = "Legitimate"
	SheetSuspicious = "Suspicious"
	SheetStats      = "Stats"
)

var recordHeader = []any{"timestamp", "url", "label", "probability", "risk"}

// WriteXLSX exports the full history, one sheet per label partition and a
// Stats sheet to path
func WriteXLSX(ctx context.Context, l ledger.Ledger, path string) error {
	records, err := l.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	stats, err := l.Stats(ctx)
	if err != nil {
		return fmt.Errorf("ledger stats: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetHistory); err != nil {
		return err
	}
	if err := writeRecords(f, SheetHistory, records); err != nil {
		return err
	}

	partitions := []struct {
		sheet string
		label model.Label
	}{
		{SheetPhishing, model.LabelPhishing},
		{SheetLegitimate, model.LabelLegitimate},
		{SheetSuspicious, model.LabelSuspicious},
	}
	for _, p := range partitions {
		if _, err := f.NewSheet(p.sheet); err != nil {
			return err
		}
		if err := writeRecords(f, p.sheet, filterLabel(records, p.label)); err != nil {
			return err
		}
	}

	if err := writeStats(f, stats); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeRecords(f *excelize.File, sheet string, records []model.ScanRecord) error {
	if err := f.SetSheetRow(sheet, "A1", &recordHeader); err != nil {
		return err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			rec.Timestamp.Format(model.TimestampLayout),
			rec.URL,
			string(rec.Label),
			rec.Probability,
			string(rec.Risk),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 60)
}

func writeStats(f *excelize.File, stats model.DashboardStats) error {
	if _, err := f.NewSheet(SheetStats); err != nil {
		return err
	}
	rows := [][]any{
		{"metric", "count"},
		{"total", stats.Total},
		{"phishing", stats.Phishing},
		{"legitimate", stats.Legitimate},
		{"suspicious", stats.Suspicious},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetStats, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func filterLabel(records []model.ScanRecord, label model.Label) []model.ScanRecord {
	var out []model.ScanRecord
	for _, r := range records {
		if r.Label == label {
			out = append(out, r)
		}
	}
	return out
}
