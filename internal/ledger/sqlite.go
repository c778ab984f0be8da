package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ppiankov/phishfuse/internal/model"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteFile is the database file name inside the ledger directory
const SQLiteFile = "ledger.db"

// SQLite stores the ledger in an embedded database. Each append is one
// transaction over scans and the label partition table.
type SQLite struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// OpenSQLite opens (or creates) dir/ledger.db and applies migrations
func OpenSQLite(ctx context.Context, dir string) (*SQLite, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistenceError{Op: "open", Path: dir, Err: err}
	}
	path := filepath.Join(dir, SQLiteFile)

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db, goose.DialectSQLite3, "migrations/sqlite"); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}

	return &SQLite{db: db, path: path, logger: slog.Default()}, nil
}

// Append inserts rec into scans and its partition in one transaction
func (s *SQLite) Append(ctx context.Context, rec model.ScanRecord) error {
	partition, err := partitionFor(rec.Label)
	if err != nil {
		return &PersistenceError{Op: "append", Path: s.path, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "append", Path: s.path, Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO scans (ts, url, label, probability, risk) VALUES (?, ?, ?, ?, ?)`,
		rec.Timestamp.Local().Format(model.TimestampLayout), rec.URL, string(rec.Label), rec.Probability, string(rec.Risk))
	if err != nil {
		return &PersistenceError{Op: "append", Path: s.path, Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return &PersistenceError{Op: "append", Path: s.path, Err: err}
	}

	// partition is one of three fixed table names
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (scan_id) VALUES (?)`, partition), id); err != nil {
		return &PersistenceError{Op: "append", Path: s.path, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "append", Path: s.path, Err: err}
	}
	return nil
}

// ReadAll returns every scan in insertion order
func (s *SQLite) ReadAll(ctx context.Context) ([]model.ScanRecord, error) {
	return s.query(ctx, `SELECT ts, url, label, probability, risk FROM scans ORDER BY id`)
}

// Recent returns the newest n scans
func (s *SQLite) Recent(ctx context.Context, n int) ([]model.ScanRecord, error) {
	if n <= 0 {
		return []model.ScanRecord{}, nil
	}
	return s.query(ctx, `SELECT ts, url, label, probability, risk FROM scans ORDER BY id DESC LIMIT ?`, n)
}

// Stats counts rows in scans and each partition table
func (s *SQLite) Stats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM scans),
		(SELECT COUNT(*) FROM phishing),
		(SELECT COUNT(*) FROM legitimate),
		(SELECT COUNT(*) FROM suspicious)`).Scan(&stats.Total, &stats.Phishing, &stats.Legitimate, &stats.Suspicious)
	if err != nil {
		return stats, &PersistenceError{Op: "stats", Path: s.path, Err: err}
	}
	return stats, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]model.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}
	defer rows.Close()

	records := []model.ScanRecord{}
	for rows.Next() {
		var ts, label, risk string
		var rec model.ScanRecord
		if err := rows.Scan(&ts, &rec.URL, &label, &rec.Probability, &risk); err != nil {
			return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
		}
		t, err := parseTimestamp(ts)
		if err != nil {
			// still counted by Stats, so ReadAll and Stats disagree until repaired
			s.logger.Warn("skipping ledger row with unparseable timestamp", "path", s.path, "ts", ts, "url", rec.URL)
			continue
		}
		rec.Timestamp = t
		rec.Label = model.Label(label)
		rec.Risk = model.RiskTier(risk)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}
	return records, nil
}
