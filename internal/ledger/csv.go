package ledger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/phishfuse/internal/model"
)

// File names of the csv backend
const (
	HistoryFile    = "scan_history.csv"
	PhishingFile   = "phishing.csv"
	LegitimateFile = "legitimate.csv"
	SuspiciousFile = "suspicious.csv"
	lockFile       = ".ledger.lock"
)

var (
	historyHeader   = []string{"timestamp", "url", "label", "probability", "risk"}
	phishingHeader  = []string{"timestamp", "url", "probability", "risk"}
	partitionHeader = []string{"timestamp", "url", "probability"}

	partitionFiles = map[string]string{
		"phishing":   PhishingFile,
		"legitimate": LegitimateFile,
		"suspicious": SuspiciousFile,
	}
	partitionHeaders = map[string][]string{
		"phishing":   phishingHeader,
		"legitimate": partitionHeader,
		"suspicious": partitionHeader,
	}

	// URLs are written on one line so every row is exactly one line
	newlineReplacer = strings.NewReplacer("\r", "%0D", "\n", "%0A")

	errMalformedRow = errors.New("malformed row")
)

// CSV is a directory of append-only csv files. Appends are serialized within
// the process by a mutex and across processes by an flock on a lock file.
type CSV struct {
	dir string
	mu  sync.Mutex
}

// NewCSV creates a csv ledger rooted at dir. Nothing is touched on disk
// until the first append.
func NewCSV(dir string) *CSV {
	return &CSV{dir: dir}
}

// Dir returns the ledger directory
func (c *CSV) Dir() string {
	return c.dir
}

// Append writes rec to scan_history.csv and its label partition
func (c *CSV) Append(ctx context.Context, rec model.ScanRecord) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "append", Path: c.dir, Err: err}
	}
	partition, err := partitionFor(rec.Label)
	if err != nil {
		return &PersistenceError{Op: "append", Path: c.dir, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return &PersistenceError{Op: "append", Path: c.dir, Err: err}
	}

	unlock, err := lockPath(filepath.Join(c.dir, lockFile))
	if err != nil {
		return &PersistenceError{Op: "lock", Path: filepath.Join(c.dir, lockFile), Err: err}
	}
	defer unlock()

	ts := rec.Timestamp.Local().Format(model.TimestampLayout)
	url := newlineReplacer.Replace(rec.URL)
	prob := formatProbability(rec.Probability)

	historyPath := filepath.Join(c.dir, HistoryFile)
	historySize, err := fileSize(historyPath)
	if err != nil {
		return &PersistenceError{Op: "append", Path: historyPath, Err: err}
	}
	if err := appendRow(historyPath, historyHeader, []string{ts, url, string(rec.Label), prob, string(rec.Risk)}); err != nil {
		_ = os.Truncate(historyPath, historySize)
		return &PersistenceError{Op: "append", Path: historyPath, Err: err}
	}

	row := []string{ts, url, prob}
	if partition == "phishing" {
		row = append(row, string(rec.Risk))
	}
	partPath := filepath.Join(c.dir, partitionFiles[partition])
	if err := appendRow(partPath, partitionHeaders[partition], row); err != nil {
		// the history row must not outlive its partition row
		if terr := os.Truncate(historyPath, historySize); terr != nil {
			err = errors.Join(err, fmt.Errorf("roll back %s: %w", HistoryFile, terr))
		}
		return &PersistenceError{Op: "append", Path: partPath, Err: err}
	}

	return nil
}

// ReadAll parses scan_history.csv, skipping malformed rows
func (c *CSV) ReadAll(ctx context.Context) ([]model.ScanRecord, error) {
	path := filepath.Join(c.dir, HistoryFile)
	records := []model.ScanRecord{}

	err := scanRows(path, func(fields []string) {
		if rec, err := parseHistoryRow(fields); err == nil {
			records = append(records, rec)
		}
	})
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	return records, ctx.Err()
}

// Stats counts well-formed rows in each file
func (c *CSV) Stats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats

	var err error
	if stats.Total, err = c.countRows(HistoryFile, len(historyHeader), 3); err != nil {
		return stats, err
	}
	if stats.Phishing, err = c.countRows(PhishingFile, len(phishingHeader), 2); err != nil {
		return stats, err
	}
	if stats.Legitimate, err = c.countRows(LegitimateFile, len(partitionHeader), 2); err != nil {
		return stats, err
	}
	if stats.Suspicious, err = c.countRows(SuspiciousFile, len(partitionHeader), 2); err != nil {
		return stats, err
	}

	return stats, ctx.Err()
}

// Recent returns the last n records, newest first
func (c *CSV) Recent(ctx context.Context, n int) ([]model.ScanRecord, error) {
	all, err := c.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return newest(all, n), nil
}

// Close is a no-op; files are opened per append
func (c *CSV) Close() error {
	return nil
}

// countRows counts rows with the expected width, a valid timestamp and a
// numeric probability column
func (c *CSV) countRows(name string, fields, probCol int) (int, error) {
	path := filepath.Join(c.dir, name)
	n := 0
	err := scanRows(path, func(row []string) {
		if len(row) != fields {
			return
		}
		if _, err := parseTimestamp(row[0]); err != nil {
			return
		}
		if _, err := strconv.ParseFloat(row[probCol], 64); err != nil {
			return
		}
		n++
	})
	if err != nil {
		return 0, &PersistenceError{Op: "stats", Path: path, Err: err}
	}
	return n, nil
}

// appendRow writes one encoded row with a single write call, creating the
// file with its header if needed. A torn trailing line from an earlier crash
// is terminated first so it stays an isolated malformed row.
func appendRow(path string, header, row []string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch {
	case info.Size() == 0:
		if err := encodeRow(&buf, header); err != nil {
			return err
		}
	default:
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil {
			return fmt.Errorf("read tail: %w", err)
		}
		if last[0] != '\n' {
			buf.WriteByte('\n')
		}
	}

	if err := encodeRow(&buf, row); err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return f.Sync()
}

// fileSize returns the size of path, or 0 if it does not exist yet
func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func encodeRow(buf *bytes.Buffer, row []string) error {
	w := csv.NewWriter(buf)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// scanRows calls fn for every parseable line after the header. A missing
// file yields no rows. Lines have no length cap so one oversized URL costs
// only its own row.
func scanRows(path string, fn func([]string)) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	first := true
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			header := first && strings.HasPrefix(line, "timestamp,")
			first = false
			if !header && strings.TrimSpace(line) != "" {
				if fields, ok := parseLine(line); ok {
					fn(fields)
				}
			}
		}
		if err != nil {
			return nil
		}
	}
}

func parseLine(line string) ([]string, bool) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return nil, false
	}
	return fields, true
}

func parseHistoryRow(fields []string) (model.ScanRecord, error) {
	if len(fields) != len(historyHeader) {
		return model.ScanRecord{}, errMalformedRow
	}
	ts, err := parseTimestamp(fields[0])
	if err != nil {
		return model.ScanRecord{}, err
	}
	prob, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return model.ScanRecord{}, errMalformedRow
	}
	label := model.Label(fields[2])
	risk := model.RiskTier(fields[4])
	if !label.Valid() || !risk.Valid() {
		return model.ScanRecord{}, errMalformedRow
	}
	return model.ScanRecord{
		Timestamp:   ts,
		URL:         fields[1],
		Label:       label,
		Probability: prob,
		Risk:        risk,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(model.TimestampLayout, s, time.Local)
}

func formatProbability(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
