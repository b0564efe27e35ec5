package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS rows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	identifier TEXT NOT NULL,
	seq INTEGER NOT NULL,
	address TEXT NOT NULL,
	owner TEXT NOT NULL,
	extracted TEXT NOT NULL,
	provenance TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rows_run ON rows(run_id, seq);
CREATE INDEX IF NOT EXISTS idx_rows_identifier ON rows(identifier);
`

// SQLiteSink stores rows in a SQLite database, tagged with a run ID.
type SQLiteSink struct {
	db         *sql.DB
	runID      string
	identifier string

	mu     sync.Mutex
	closed bool
}

// NewSQLiteSink opens or creates the database at path. Rows appended
// through the sink belong to runID and identifier.
func NewSQLiteSink(ctx context.Context, path, runID, identifier string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLiteSink{db: db, runID: runID, identifier: identifier}, nil
}

// Append inserts row.
func (s *SQLiteSink) Append(ctx context.Context, row Row) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rows (run_id, identifier, seq, address, owner, extracted, provenance, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, s.identifier, row.Seq, row.Address, row.Owner, row.Extracted,
		row.Provenance, row.Source, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert row %d: %w", row.Seq, err)
	}
	return nil
}

// Rows returns the rows of runID ordered by sequence number.
func (s *SQLiteSink) Rows(ctx context.Context, runID string) ([]Row, error) {
	rs, err := s.db.QueryContext(ctx,
		`SELECT seq, address, owner, extracted, provenance, source
		FROM rows WHERE run_id = ? ORDER BY seq, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rs.Close()

	var rows []Row
	for rs.Next() {
		var r Row
		if err := rs.Scan(&r.Seq, &r.Address, &r.Owner, &r.Extracted, &r.Provenance, &r.Source); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, rs.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
