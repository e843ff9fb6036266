package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var runsSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol           TEXT NOT NULL,
		created_at       INTEGER NOT NULL,
		initial_capital  REAL NOT NULL,
		slippage         REAL NOT NULL,
		latency_ms       INTEGER NOT NULL,
		final_return_pct REAL NOT NULL,
		sharpe_ratio     REAL NOT NULL,
		max_drawdown_pct REAL NOT NULL,
		total_trades     INTEGER NOT NULL,
		warnings         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol, created_at)`,
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	for _, stmt := range runsSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing runs schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run summary and assigns run.ID from the database.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) error {
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return fmt.Errorf("encoding warnings: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			symbol, created_at, initial_capital, slippage, latency_ms,
			final_return_pct, sharpe_ratio, max_drawdown_pct, total_trades, warnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Symbol, run.CreatedAt.UnixMilli(), run.InitialCapital, run.Slippage,
		run.LatencyMs, run.FinalReturnPct, run.SharpeRatio, run.MaxDrawdownPct,
		run.TotalTrades, string(warnings),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	return nil
}

// GetRun retrieves a single run by its ID. Returns sql.ErrNoRows when no run
// with that ID exists.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, created_at, initial_capital, slippage, latency_ms,
		       final_return_pct, sharpe_ratio, max_drawdown_pct, total_trades, warnings
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A non-empty symbol
// restricts the listing to that symbol; limit <= 0 means no limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, symbol string, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, symbol, created_at, initial_capital, slippage, latency_ms,
		       final_return_pct, sharpe_ratio, max_drawdown_pct, total_trades, warnings
		FROM runs`
	args := []any{}
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var run RunRecord
	var createdAt int64
	var warnings string
	if err := s.Scan(
		&run.ID, &run.Symbol, &createdAt, &run.InitialCapital, &run.Slippage,
		&run.LatencyMs, &run.FinalReturnPct, &run.SharpeRatio, &run.MaxDrawdownPct,
		&run.TotalTrades, &warnings,
	); err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
		return nil, fmt.Errorf("decoding warnings for run %d: %w", run.ID, err)
	}
	return &run, nil
}
