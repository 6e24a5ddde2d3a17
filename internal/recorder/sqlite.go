package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run events to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
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

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS run_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			run_id     TEXT NOT NULL,
			mode       TEXT,
			session    TEXT,
			symbol     TEXT,
			price      REAL,
			prev_close REAL,
			change_pct REAL,
			source     TEXT,
			rule       TEXT,
			action     TEXT,
			persisted  INTEGER,
			delivered  INTEGER,
			outcome    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_events_ts ON run_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_run_events_symbol ON run_events(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO run_events
		(timestamp, run_id, mode, session, symbol, price, prev_close, change_pct,
		 source, rule, action, persisted, delivered, outcome)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		at.Unix(), evt.RunID, evt.Mode, evt.Session, evt.Symbol,
		evt.Price, evt.PrevClose, evt.ChangePct,
		evt.Source, evt.Rule, evt.Action, evt.Persisted, evt.Delivered, evt.Outcome,
	)
	return err
}

// Recent returns the latest events for a symbol, newest first.
func (r *SQLiteRecorder) Recent(symbol string, limit int) ([]RunEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, run_id, mode, session, symbol, price, prev_close,
		change_pct, source, rule, action, persisted, delivered, outcome
		FROM run_events WHERE symbol = ? ORDER BY id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunEvent
	for rows.Next() {
		var e RunEvent
		var ts int64
		if err := rows.Scan(&ts, &e.RunID, &e.Mode, &e.Session, &e.Symbol, &e.Price, &e.PrevClose,
			&e.ChangePct, &e.Source, &e.Rule, &e.Action, &e.Persisted, &e.Delivered, &e.Outcome); err != nil {
			return nil, err
		}
		e.At = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
