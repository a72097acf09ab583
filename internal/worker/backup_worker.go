// Package worker turns ledger-changed notifications into workbook backups on
// disk, with a periodic pass as a safety net for lost messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"caja/internal/amqp"
	"caja/internal/storage"
	"caja/internal/workbook"
)

// BackupWorker reads the current ledger snapshot from the durable store and
// writes a dated .xlsx backup. One file per day: a later change on the same
// day overwrites that day's file.
type BackupWorker struct {
	storage *storage.SQLiteRepository
	dir     string
	prefix  string

	mu           sync.Mutex
	lastRevision int64
}

func NewBackupWorker(store *storage.SQLiteRepository, dir, prefix string) *BackupWorker {
	return &BackupWorker{
		storage: store,
		dir:     dir,
		prefix:  prefix,
	}
}

// HandleLedgerChanged processes one notification. Revisions arrive in order
// per publisher; anything at or below the last handled revision has already
// been captured by a newer snapshot and is skipped.
func (w *BackupWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.mu.Lock()
	stale := msg.Revision != 0 && msg.Revision <= w.lastRevision
	if !stale && msg.Revision > w.lastRevision {
		w.lastRevision = msg.Revision
	}
	w.mu.Unlock()
	if stale {
		slog.DebugContext(ctx, "Skipping stale ledger revision", "revision", msg.Revision)
		return nil
	}

	slog.InfoContext(ctx, "Processing ledger changed message",
		"revision", msg.Revision,
		"operation", msg.Operation)
	return w.WriteBackup(ctx)
}

// WriteBackup exports the stored ledger into today's backup file.
func (w *BackupWorker) WriteBackup(ctx context.Context) error {
	members, loans, err := w.storage.LoadLedger(ctx)
	if err != nil {
		return fmt.Errorf("load ledger for backup: %w", err)
	}

	data, err := workbook.Export(members, loans)
	if err != nil {
		return fmt.Errorf("export workbook: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	path := filepath.Join(w.dir, workbook.BackupFilename(w.prefix, time.Now()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}

	slog.InfoContext(ctx, "Backup written",
		"path", path,
		"members", len(members),
		"loans", len(loans),
		"bytes", len(data))
	return nil
}
