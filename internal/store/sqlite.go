package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"backtester/internal/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS algo_runs (
	algo_run_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id      TEXT NOT NULL,
	algo_name     TEXT NOT NULL,
	parameters    TEXT,
	environment   TEXT,
	ref_algo_run  INTEGER,
	start_time    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_algo_runs_batch ON algo_runs(batch_id);

CREATE TABLE IF NOT EXISTS trades (
	trade_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	algo_run_id   INTEGER NOT NULL REFERENCES algo_runs(algo_run_id),
	symbol        TEXT NOT NULL,
	operation     TEXT NOT NULL,
	qty           INTEGER NOT NULL,
	price         TEXT NOT NULL,
	indicators    TEXT,
	stop_price    TEXT,
	target_price  TEXT,
	tstamp        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(algo_run_id);
`

// SQLiteStore persists runs and trades in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if necessary initializes) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable WAL mode for crash recovery
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, cfg core.RunConfig) (int64, error) {
	query := `INSERT INTO algo_runs (batch_id, algo_name, parameters, environment, ref_algo_run, start_time)
	          VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		cfg.BatchID, cfg.StrategyName, cfg.Params, cfg.Env, cfg.RefRunID, cfg.StartTime)
	if err != nil {
		return 0, fmt.Errorf("failed to create algo run: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) SaveTrade(ctx context.Context, trade core.Trade) error {
	indicators, err := json.Marshal(trade.Indicators)
	if err != nil {
		return fmt.Errorf("failed to marshal indicators: %w", err)
	}

	query := `INSERT INTO trades (algo_run_id, symbol, operation, qty, price, indicators, stop_price, target_price, tstamp)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		trade.RunID, trade.Symbol, string(trade.Side), trade.Qty,
		trade.Price.String(), string(indicators),
		trade.StopPrice.String(), trade.TargetPrice.String(), trade.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadBatchSymbols(ctx context.Context, batchID string) ([]string, error) {
	query := `SELECT DISTINCT t.symbol
	          FROM trades t
	          JOIN algo_runs r ON r.algo_run_id = t.algo_run_id
	          WHERE r.batch_id = ?
	          ORDER BY t.symbol`
	rows, err := s.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

func (s *SQLiteStore) ListBatches(ctx context.Context, since time.Time) ([]core.BatchInfo, error) {
	query := `SELECT algo_run_id, batch_id, algo_name, environment, start_time
	          FROM algo_runs
	          WHERE start_time >= ?
	          ORDER BY algo_run_id`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []core.BatchInfo
	for rows.Next() {
		var b core.BatchInfo
		if err := rows.Scan(&b.RunID, &b.BatchID, &b.StrategyName, &b.Env, &b.StartTime); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
