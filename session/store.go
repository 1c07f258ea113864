package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/evdnx/tradesim/runtimestats"
	"github.com/evdnx/tradesim/stats"
)

// ResultStore persists finished Session runs to a SQLite database, so a
// wrapping harness can list or inspect past runs without rerunning the
// backtest (§6).
type ResultStore struct {
	db *sql.DB
}

// OpenResultStore opens (or creates) the SQLite database at path and
// migrates its schema. Pass ":memory:" for an ephemeral store in tests.
func OpenResultStore(path string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("session: open result store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: ping result store: %w", err)
	}
	store := &ResultStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *ResultStore) Close() error { return s.db.Close() }

func (s *ResultStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS session_results (
			session_id       TEXT PRIMARY KEY,
			status           TEXT NOT NULL,
			total_symbols    INTEGER NOT NULL DEFAULT 0,
			processed_symbols INTEGER NOT NULL DEFAULT 0,
			error_symbols    INTEGER NOT NULL DEFAULT 0,
			tradery_score    REAL NOT NULL DEFAULT 0,
			ending_equity    REAL NOT NULL DEFAULT 0,
			snapshot_json    TEXT NOT NULL DEFAULT '{}',
			stats_json       TEXT,
			created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// Save records one finished Result under its scheduler session id,
// overwriting any prior row with the same id (a resumed or re-queried run).
// endingEquity is the curve's total ending equity (0 if the equity pass was
// disabled for this run).
func (s *ResultStore) Save(ctx context.Context, snapshot runtimestats.Snapshot, result *stats.Stats, endingEquity float64) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("session: marshal snapshot: %w", err)
	}

	var statsJSON sql.NullString
	var traderyScore float64
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("session: marshal stats: %w", err)
		}
		statsJSON = sql.NullString{String: string(b), Valid: true}
		traderyScore = result.TraderyScore
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_results (
			session_id, status, total_symbols, processed_symbols, error_symbols,
			tradery_score, ending_equity, snapshot_json, stats_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			total_symbols = excluded.total_symbols,
			processed_symbols = excluded.processed_symbols,
			error_symbols = excluded.error_symbols,
			tradery_score = excluded.tradery_score,
			ending_equity = excluded.ending_equity,
			snapshot_json = excluded.snapshot_json,
			stats_json = excluded.stats_json
	`,
		snapshot.SessionID, string(snapshot.Status), snapshot.TotalSymbolCount,
		snapshot.ProcessedSymbolCount, snapshot.SymbolProcessedWithErrorCount,
		traderyScore, endingEquity, string(snapshotJSON), statsJSON,
	)
	if err != nil {
		return fmt.Errorf("session: save result: %w", err)
	}
	return nil
}

// StoredResult is one row of a prior session run, as persisted by Save.
type StoredResult struct {
	SessionID        string
	Status           string
	TotalSymbols     int64
	ProcessedSymbols int64
	ErrorSymbols     int64
	TraderyScore     float64
	EndingEquity     float64
}

// Get fetches the summary row for sessionID, or ok=false if no run with
// that id was ever saved.
func (s *ResultStore) Get(ctx context.Context, sessionID string) (StoredResult, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, status, total_symbols, processed_symbols, error_symbols, tradery_score, ending_equity
		FROM session_results WHERE session_id = ?
	`, sessionID)

	var r StoredResult
	if err := row.Scan(&r.SessionID, &r.Status, &r.TotalSymbols, &r.ProcessedSymbols, &r.ErrorSymbols, &r.TraderyScore, &r.EndingEquity); err != nil {
		if err == sql.ErrNoRows {
			return StoredResult{}, false, nil
		}
		return StoredResult{}, false, fmt.Errorf("session: get result: %w", err)
	}
	return r, true, nil
}
