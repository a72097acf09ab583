// Package storage persists the ledger to a durable SQLite-backed key-value
// store: two fixed document keys hold the members and loans arrays as JSON,
// mirroring the shapes the rest of the system exchanges.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"caja/internal/core"

	_ "modernc.org/sqlite"
)

const (
	keyMembers = "members"
	keyLoans   = "loans"
)

// Error marks a durable read/write failure so callers can distinguish it
// from business-rule rejections.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
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

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveLedger upserts both document keys in one transaction, so a failure
// never leaves members and loans out of step with each other.
func (r *SQLiteRepository) SaveLedger(ctx context.Context, members []*core.Member, loans []*core.Loan) error {
	membersJSON, err := json.Marshal(members)
	if err != nil {
		return &Error{Op: "save", Err: fmt.Errorf("marshal members: %w", err)}
	}
	loansJSON, err := json.Marshal(loans)
	if err != nil {
		return &Error{Op: "save", Err: fmt.Errorf("marshal loans: %w", err)}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "save", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO documents (key, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`
	if _, err := tx.ExecContext(ctx, upsert, keyMembers, string(membersJSON)); err != nil {
		return &Error{Op: "save", Err: fmt.Errorf("upsert members: %w", err)}
	}
	if _, err := tx.ExecContext(ctx, upsert, keyLoans, string(loansJSON)); err != nil {
		return &Error{Op: "save", Err: fmt.Errorf("upsert loans: %w", err)}
	}
	if err := tx.Commit(); err != nil {
		return &Error{Op: "save", Err: fmt.Errorf("commit: %w", err)}
	}

	slog.InfoContext(ctx, "Ledger saved",
		"members", len(members),
		"loans", len(loans))
	return nil
}

// LoadLedger reads both documents back. A missing key means an empty
// collection; corrupt JSON degrades to an empty ledger and returns a
// diagnostic alongside it so the caller can surface the problem without
// crashing.
func (r *SQLiteRepository) LoadLedger(ctx context.Context) ([]*core.Member, []*core.Loan, error) {
	var members []*core.Member
	if err := r.loadDocument(ctx, keyMembers, &members); err != nil {
		return nil, nil, err
	}
	var loans []*core.Loan
	if err := r.loadDocument(ctx, keyLoans, &loans); err != nil {
		return nil, nil, err
	}
	return members, loans, nil
}

func (r *SQLiteRepository) loadDocument(ctx context.Context, key string, dest any) error {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return &Error{Op: "load", Err: fmt.Errorf("read %s: %w", key, err)}
	}
	if err := json.Unmarshal([]byte(body), dest); err != nil {
		return &Error{Op: "load", Err: fmt.Errorf("decode %s: %w", key, err)}
	}
	return nil
}

// Reset removes both documents (delete-all).
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE key IN (?, ?)`, keyMembers, keyLoans); err != nil {
		return &Error{Op: "reset", Err: err}
	}
	return nil
}
