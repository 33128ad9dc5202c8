// Package store exports finished reports to a SQLite database. Exported
// runs are write-only: nothing in an analysis reads them back.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/repcheck/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    task TEXT,
    generated_at TEXT,
    model TEXT,
    fuzziness INTEGER,
    min_length INTEGER,
    max_length INTEGER,
    passes INTEGER,
    mode TEXT,
    repetitiveness REAL,
    tokens INTEGER,
    types INTEGER,
    unmatched INTEGER
);

CREATE TABLE IF NOT EXISTS files (
    run_id TEXT,
    name TEXT,
    tokens INTEGER,
    sentence_separators INTEGER,
    unmatched INTEGER,
    alikeness REAL
);

CREATE TABLE IF NOT EXISTS phrases (
    run_id TEXT,
    rank INTEGER,
    text TEXT,
    length INTEGER,
    count INTEGER,
    real_count INTEGER,
    weight REAL,
    accumulated_repetitiveness REAL
);
`

// Store is an open export database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Export writes one report in a single transaction
func (s *Store) Export(ctx context.Context, rep *model.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, task, generated_at, model, fuzziness, min_length, max_length,
		 passes, mode, repetitiveness, tokens, types, unmatched)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.Task, rep.GeneratedAt.UTC().Format(time.RFC3339Nano),
		rep.Settings.Model, rep.Settings.Fuzziness, rep.Settings.MinLength, rep.Settings.MaxLength,
		rep.Settings.Passes, rep.Settings.Mode, rep.Repetitiveness,
		rep.Diagnostics.Tokens, rep.Diagnostics.Types, rep.Diagnostics.Unmatched)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, f := range rep.Files {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO files (run_id, name, tokens, sentence_separators, unmatched, alikeness)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rep.RunID, f.Name, f.Tokens, f.SentenceSeparators, f.Unmatched, f.Alikeness)
		if err != nil {
			return fmt.Errorf("insert file %s: %w", f.Name, err)
		}
	}

	for _, p := range rep.Phrases {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO phrases (run_id, rank, text, length, count, real_count, weight, accumulated_repetitiveness)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.RunID, p.Rank, p.Text, p.Length, p.Count, p.RealCount, p.Weight, p.AccumulatedRepetitiveness)
		if err != nil {
			return fmt.Errorf("insert phrase %d: %w", p.Rank, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}

// CountRows returns the number of rows a run left in table
func (s *Store) CountRows(ctx context.Context, table, runID string) (int, error) {
	switch table {
	case "runs", "files", "phrases":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE run_id = ?", runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
