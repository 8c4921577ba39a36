package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// Sample kinds stored in accuracy_samples.kind.
const (
	KindIV = "IV"
	KindHV = "HV"
)

// SQLiteRecorder persists runs, selected contracts and accuracy samples to SQLite.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			from_date      TEXT,
			to_date        TEXT,
			price_points   INTEGER,
			requests_made  INTEGER,
			max_requests   INTEGER,
			contracts      INTEGER,
			iv_mae         REAL,
			hv_mae         REAL,
			correlation    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS selected_contracts (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id             TEXT NOT NULL,
			anchor_date        TEXT NOT NULL,
			contract_id        TEXT,
			kind               TEXT,
			expiration         TEXT,
			strike             REAL,
			last_price         REAL,
			implied_volatility REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contracts_run ON selected_contracts(run_id)`,

		`CREATE TABLE IF NOT EXISTS accuracy_samples (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			kind   TEXT NOT NULL,
			date   TEXT NOT NULL,
			error  REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_run ON accuracy_samples(run_id, kind)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the report and its series in one transaction. The HV series
// stored is the full one, so the IV-date view can be rebuilt with a join.
func (r *SQLiteRecorder) RecordRun(rep *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, timestamp, symbol, from_date, to_date, price_points, requests_made, max_requests,
		 contracts, iv_mae, hv_mae, correlation)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rep.RunID, rep.GeneratedAt.Unix(), rep.Symbol, rep.From.String(), rep.To.String(),
		rep.PricePoints, rep.RequestsMade, rep.MaxRequests, len(rep.Contracts),
		nullable(rep.IVMAE), nullable(rep.HVMAE), nullable(rep.Correlation),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, c := range rep.Contracts {
		if _, err := tx.Exec(`INSERT INTO selected_contracts
			(run_id, anchor_date, contract_id, kind, expiration, strike, last_price, implied_volatility)
			VALUES (?,?,?,?,?,?,?,?)`,
			rep.RunID, c.AnchorDate.String(), c.ContractID, string(c.Kind), c.Expiration.String(),
			c.Strike, c.LastPrice, c.ImpliedVolatility,
		); err != nil {
			return fmt.Errorf("insert contract: %w", err)
		}
	}

	if err := insertSamples(tx, rep.RunID, KindIV, rep.IV); err != nil {
		return err
	}
	if err := insertSamples(tx, rep.RunID, KindHV, rep.HVFull); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSamples(tx *sql.Tx, runID, kind string, samples []model.AccuracySample) error {
	stmt, err := tx.Prepare(`INSERT INTO accuracy_samples (run_id, kind, date, error) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare samples: %w", err)
	}
	defer stmt.Close()
	for _, s := range samples {
		if _, err := stmt.Exec(runID, kind, s.Date.String(), s.Error); err != nil {
			return fmt.Errorf("insert %s sample: %w", kind, err)
		}
	}
	return nil
}

// LoadSamples returns the stored samples of one kind for a run, in date order.
func (r *SQLiteRecorder) LoadSamples(runID, kind string) ([]model.AccuracySample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT date, error FROM accuracy_samples
		WHERE run_id = ? AND kind = ? ORDER BY date, id`, runID, kind)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []model.AccuracySample
	for rows.Next() {
		var ds string
		var s model.AccuracySample
		if err := rows.Scan(&ds, &s.Error); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if s.Date, err = model.ParseDate(ds); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullable(s model.Stat) interface{} {
	if !s.Defined {
		return nil
	}
	return s.Value
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
