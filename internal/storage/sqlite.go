// Package storage provides the durable ledger store on SQLite, plus an
// in-memory implementation of the same interfaces for hermetic tests.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"fambudget/internal/core"
	"fambudget/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the production store. It implements ledger.Store and
// tenancy.Directory against a single SQLite database.
type SQLiteRepository struct {
	db *sql.DB
	queries
}

// NewSQLiteRepository opens (and migrates) the database at dbPath.
//
// _txlock=immediate makes every transaction take the write lock up front,
// which is what serializes concurrent balance updates; busy_timeout keeps
// short contention from surfacing as errors.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: queries{q: db},
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RunAtomic executes fn inside one database transaction. All writes fn
// makes become visible together or not at all; begin/commit failures under
// contention are reported as core.ErrStoreBusy so callers can retry the
// whole operation.
func (r *SQLiteRepository) RunAtomic(ctx context.Context, fn func(tx ledger.Tx) error) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBErr(fmt.Errorf("begin transaction: %w", err))
	}
	if err := fn(&sqliteTx{queries{q: dbtx}}); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return wrapDBErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// sqliteTx is the in-transaction view handed to the ledger engine.
type sqliteTx struct {
	queries
}

// querier is satisfied by both *sql.DB and *sql.Tx so the same query code
// runs inside and outside an atomic unit.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

// wrapDBErr normalizes driver-level contention errors into the transient
// core.ErrStoreBusy the engine's callers know how to retry.
func wrapDBErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, core.ErrStoreBusy)
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func toUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse stored id %q: %w", s, err)
	}
	return id, nil
}

func toUUIDPtr(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	id, err := toUUID(ns.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func uuidArg(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
