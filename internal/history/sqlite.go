package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteTable keeps the same positional rows in a local database file, for
// development and offline deployments.
type SQLiteTable struct {
	db *sql.DB
}

// NewSQLiteTable opens (or creates) the database and runs migrations.
func NewSQLiteTable(dbPath string) (*SQLiteTable, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps ":memory:" databases stable and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	t := &SQLiteTable{db: db}
	if err := t.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("path", dbPath).Msg("sqlite history store opened")
	return t, nil
}

func (t *SQLiteTable) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS history_rows (
			position  INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol    TEXT NOT NULL,
			name      TEXT,
			date      TEXT,
			price     TEXT,
			ma5       TEXT,
			ma20      TEXT,
			ma60      TEXT,
			timestamp TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_symbol_date ON history_rows(symbol, date)`,
	}
	for _, s := range stmts {
		if _, err := t.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

const insertRow = `INSERT INTO history_rows
	(symbol, name, date, price, ma5, ma20, ma60, timestamp)
	VALUES (?,?,?,?,?,?,?,?)`

func (t *SQLiteTable) ReadRows(ctx context.Context) ([][]string, error) {
	rs, err := t.db.QueryContext(ctx, `SELECT symbol, name, date, price, ma5, ma20, ma60, timestamp
		FROM history_rows ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var rows [][]string
	for rs.Next() {
		cells := make([]sql.NullString, NumColumns)
		dest := make([]any, NumColumns)
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, NumColumns)
		for i, c := range cells {
			row[i] = c.String
		}
		rows = append(rows, row)
	}
	return rows, rs.Err()
}

func (t *SQLiteTable) AppendRows(ctx context.Context, rows [][]string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := insertAll(ctx, tx, rows); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (t *SQLiteTable) OverwriteRows(ctx context.Context, rows [][]string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM history_rows`); err != nil {
		tx.Rollback()
		return err
	}
	if err := insertAll(ctx, tx, rows); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (t *SQLiteTable) UpdateRow(ctx context.Context, index int, row []string) error {
	var pos int64
	err := t.db.QueryRowContext(ctx, `SELECT position FROM history_rows ORDER BY position LIMIT 1 OFFSET ?`, index).Scan(&pos)
	if err != nil {
		return fmt.Errorf("locate row %d: %w", index, err)
	}
	args := append(cellArgs(row), pos)
	_, err = t.db.ExecContext(ctx, `UPDATE history_rows
		SET symbol=?, name=?, date=?, price=?, ma5=?, ma20=?, ma60=?, timestamp=?
		WHERE position=?`, args...)
	return err
}

func (t *SQLiteTable) Close() error {
	log.Info().Msg("closing sqlite history store")
	return t.db.Close()
}

func insertAll(ctx context.Context, tx *sql.Tx, rows [][]string) error {
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, insertRow, cellArgs(row)...); err != nil {
			return err
		}
	}
	return nil
}

// cellArgs pads or cuts row to the column count.
func cellArgs(row []string) []any {
	args := make([]any, NumColumns)
	for i := range args {
		if i < len(row) {
			args[i] = row[i]
		} else {
			args[i] = ""
		}
	}
	return args
}
