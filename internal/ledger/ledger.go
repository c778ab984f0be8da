// Package ledger is the append-only audit trail of scan verdicts.
//
// Every append writes the full chronological sequence and exactly one label
// partition. Stats are always recomputed by counting partition rows.
package ledger

import (
	"context"
	"fmt"

	"github.com/ppiankov/phishfuse/internal/model"
)

// Ledger persists scan records
type Ledger interface {
	// Append adds one record to the full sequence and its label partition
	Append(ctx context.Context, rec model.ScanRecord) error

	// ReadAll returns every record, oldest first
	ReadAll(ctx context.Context) ([]model.ScanRecord, error)

	// Stats counts the rows of each partition
	Stats(ctx context.Context) (model.DashboardStats, error)

	// Recent returns the last n records, most recent first
	Recent(ctx context.Context, n int) ([]model.ScanRecord, error)

	// Close releases the backend
	Close() error
}

// PersistenceError reports a failed ledger operation. It never invalidates
// the verdict that was being recorded.
type PersistenceError struct {
	Op   string // append, read, stats, open
	Path string // file, database or DSN host
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Open selects a backend from configuration
func Open(ctx context.Context, cfg model.LedgerConfig) (Ledger, error) {
	switch cfg.Backend {
	case "", "csv":
		return NewCSV(cfg.Dir), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.Dir)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", cfg.Backend)
	}
}

// partitionFor maps a label to its partition name
func partitionFor(label model.Label) (string, error) {
	switch label {
	case model.LabelPhishing:
		return "phishing", nil
	case model.LabelLegitimate:
		return "legitimate", nil
	case model.LabelSuspicious:
		return "suspicious", nil
	default:
		return "", fmt.Errorf("unknown label %q", label)
	}
}

// newest returns the last n records of an oldest-first slice, reversed
func newest(all []model.ScanRecord, n int) []model.ScanRecord {
	if n <= 0 {
		return []model.ScanRecord{}
	}
	if n > len(all) {
		n = len(all)
	}
	out := make([]model.ScanRecord, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out
}
