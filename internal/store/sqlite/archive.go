// Package sqlite archives fetched bars, cycle outcomes and the alert
// journal to a local database for replay and audit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"crosswatch/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// ArchiveConfig configures the SQLite archive.
type ArchiveConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/crosswatch.db"
}

// Archive is a single-writer SQLite store with per-call transactions.
type Archive struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (a *Archive) DB() *sql.DB { return a.db }

// New creates a new Archive, initializing the database with WAL mode and schema.
func New(cfg ArchiveConfig) (*Archive, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Archive{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol   TEXT    NOT NULL,
			interval TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL,
			PRIMARY KEY (symbol, interval, ts)
		);

		CREATE TABLE IF NOT EXISTS reports (
			symbol     TEXT    NOT NULL,
			cycle      INTEGER NOT NULL,
			ts         INTEGER NOT NULL,
			status     TEXT    NOT NULL,
			cross_kind TEXT,
			last_price REAL,
			vwap       REAL,
			bars       INTEGER,
			error      TEXT,
			PRIMARY KEY (symbol, cycle)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol         TEXT    NOT NULL,
			kind           TEXT    NOT NULL,
			last_price     REAL,
			message        TEXT,
			ts             INTEGER NOT NULL,
			delivered      INTEGER NOT NULL,
			delivery_error TEXT
		);
	`)
	return err
}

// SaveBars upserts a fetched series in one transaction. Re-fetching a
// window is idempotent: the (symbol, interval, ts) key replaces in place.
func (a *Archive) SaveBars(ctx context.Context, s model.Series) error {
	if s.Len() == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range s.Bars {
		_, err := stmt.Exec(s.Symbol, string(s.Interval), b.TS.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// WriteReport archives every instrument entry of one cycle in a single
// transaction.
func (a *Archive) WriteReport(ctx context.Context, report *model.CycleReport) error {
	if len(report.Entries) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO reports (symbol, cycle, ts, status, cross_kind, last_price, vwap, bars, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, sym := range report.Symbols() {
		entry := report.Entries[sym]
		var vwap interface{} // NULL when the session VWAP is undefined
		if entry.Vwap != nil {
			vwap = *entry.Vwap
		}
		_, err := stmt.Exec(sym, report.Cycle, entry.EvaluatedAt.Unix(), entry.Status,
			string(entry.Crossover.Kind), entry.LastPrice, vwap, entry.Bars, entry.Error)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// RecordAlert journals one alert and its delivery outcome.
func (a *Archive) RecordAlert(ctx context.Context, intent model.AlertIntent, delivered bool, deliveryErr string) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO alerts (symbol, kind, last_price, message, ts, delivered, delivery_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, intent.Symbol, string(intent.Kind), intent.LastPrice, intent.Message, intent.TS.Unix(),
		boolToInt(delivered), deliveryErr)
	if err != nil {
		return fmt.Errorf("sqlite insert alert: %w", err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// PruneBars deletes bars older than the retention cutoff. Returns rows removed.
func (a *Archive) PruneBars(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, `DELETE FROM bars WHERE ts < ?`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite prune bars: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}
