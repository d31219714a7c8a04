package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pairledger/internal/core"
	applog "pairledger/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists households and their ledger entries.
type SQLiteRepository struct {
	db *sql.DB
	// q serves reads; it is the open transaction on a snapshot view
	q queryer
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// DSN returns the connection string for a database file. Foreign keys are on,
// writers wait instead of failing with SQLITE_BUSY, and every transaction
// takes the write lock up front.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// logger tags storage records with their component.
func logger() *slog.Logger {
	return slog.Default().With(applog.FieldComponent, applog.ComponentStorage)
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LedgerSnapshot reads the household with its incomes, expenses and
// settlements from one read view, so a write committed midway is either fully
// visible or not at all.
func (r *SQLiteRepository) LedgerSnapshot(ctx context.Context, householdID string) (core.LedgerSnapshot, error) {
	var snap core.LedgerSnapshot
	err := r.readView(ctx, func(view *SQLiteRepository) error {
		var err error
		if snap.Household, err = view.GetHousehold(ctx, householdID); err != nil {
			return err
		}
		if snap.Incomes, err = view.ListIncomes(ctx, householdID); err != nil {
			return err
		}
		if snap.Expenses, err = view.ListExpenses(ctx, householdID, core.ExpenseFilter{}); err != nil {
			return err
		}
		snap.Settlements, err = view.ListSettlements(ctx, householdID)
		return err
	})
	if err != nil {
		return core.LedgerSnapshot{}, err
	}
	return snap, nil
}

// readView runs fn against a repository whose reads share one read-only
// transaction. Read-only transactions begin deferred, so writers are not
// blocked while the view is open.
func (r *SQLiteRepository) readView(ctx context.Context, fn func(view *SQLiteRepository) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLiteRepository{db: r.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit read transaction: %w", err)
	}
	return nil
}

// expectOne maps a zero-row write onto ErrNotFound.
func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) (core.Date, error) {
	if !ns.Valid || ns.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(ns.String)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func now() time.Time {
	return time.Now().UTC()
}
