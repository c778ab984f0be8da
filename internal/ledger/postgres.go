package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/ppiankov/phishfuse/internal/model"
	"github.com/pressly/goose/v3"
)

// Postgres stores the ledger in PostgreSQL through a pgx pool
type Postgres struct {
	pool *pgxpool.Pool
	host string
}

// OpenPostgres connects to dsn, pings, and applies migrations
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &PersistenceError{Op: "open", Err: err}
	}
	host := cfg.ConnConfig.Host
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &PersistenceError{Op: "open", Path: host, Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &PersistenceError{Op: "open", Path: host, Err: err}
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := migrate(ctx, db, goose.DialectPostgres, "migrations/postgres"); err != nil {
		pool.Close()
		return nil, &PersistenceError{Op: "open", Path: host, Err: err}
	}

	return &Postgres{pool: pool, host: host}, nil
}

// Append inserts rec into scans and its partition in one transaction
func (p *Postgres) Append(ctx context.Context, rec model.ScanRecord) error {
	partition, err := partitionFor(rec.Label)
	if err != nil {
		return &PersistenceError{Op: "append", Path: p.host, Err: err}
	}

	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO scans (ts, url, label, probability, risk)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, rec.Timestamp, rec.URL, string(rec.Label), rec.Probability, string(rec.Risk)).Scan(&id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (scan_id) VALUES ($1)`, partition), id)
		return err
	})
	if err != nil {
		return &PersistenceError{Op: "append", Path: p.host, Err: err}
	}
	return nil
}

// ReadAll returns every scan in insertion order
func (p *Postgres) ReadAll(ctx context.Context) ([]model.ScanRecord, error) {
	return p.query(ctx, `SELECT ts, url, label, probability, risk FROM scans ORDER BY id`)
}

// Recent returns the newest n scans
func (p *Postgres) Recent(ctx context.Context, n int) ([]model.ScanRecord, error) {
	if n <= 0 {
		return []model.ScanRecord{}, nil
	}
	return p.query(ctx, `SELECT ts, url, label, probability, risk FROM scans ORDER BY id DESC LIMIT $1`, n)
}

// Stats counts rows in scans and each partition table
func (p *Postgres) Stats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	err := p.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM scans),
		(SELECT COUNT(*) FROM phishing),
		(SELECT COUNT(*) FROM legitimate),
		(SELECT COUNT(*) FROM suspicious)`).Scan(&stats.Total, &stats.Phishing, &stats.Legitimate, &stats.Suspicious)
	if err != nil {
		return stats, &PersistenceError{Op: "stats", Path: p.host, Err: err}
	}
	return stats, nil
}

// Close closes the pool
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) query(ctx context.Context, q string, args ...any) ([]model.ScanRecord, error) {
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: p.host, Err: err}
	}
	defer rows.Close()

	records := []model.ScanRecord{}
	for rows.Next() {
		var rec model.ScanRecord
		var label, risk string
		if err := rows.Scan(&rec.Timestamp, &rec.URL, &label, &rec.Probability, &risk); err != nil {
			return nil, &PersistenceError{Op: "read", Path: p.host, Err: err}
		}
		rec.Timestamp = rec.Timestamp.Local()
		rec.Label = model.Label(label)
		rec.Risk = model.RiskTier(risk)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "read", Path: p.host, Err: err}
	}
	return records, nil
}
