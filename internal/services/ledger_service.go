// Package services orchestrates the in-memory ledger with its durable store
// and the AMQP notification stream.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"caja/internal/amqp"
	"caja/internal/core"
	"caja/internal/ledger"
	"caja/internal/storage"
	"caja/internal/workbook"
)

// LedgerService runs every mutation against the in-memory ledger first, then
// persists the snapshot and publishes a ledger-changed notification. A
// persist or publish failure never undoes the mutation: the in-memory state
// is then the only copy and the failure is surfaced to the caller.
type LedgerService struct {
	ledger       *ledger.Ledger
	storage      *storage.SQLiteRepository
	amqpClient   *amqp.Client
	backupPrefix string
	revision     atomic.Int64
}

func NewLedgerService(ldg *ledger.Ledger, store *storage.SQLiteRepository, amqpClient *amqp.Client, backupPrefix string) *LedgerService {
	return &LedgerService{
		ledger:       ldg,
		storage:      store,
		amqpClient:   amqpClient,
		backupPrefix: backupPrefix,
	}
}

// LoadFromStorage hydrates the ledger from the durable store. On a corrupt
// or unreadable store the ledger starts empty and the diagnostic is returned
// for the caller to report; it must not crash startup.
func (s *LedgerService) LoadFromStorage(ctx context.Context) error {
	if s.storage == nil {
		slog.WarnContext(ctx, "Storage not available, starting with empty ledger")
		return nil
	}
	members, loans, err := s.storage.LoadLedger(ctx)
	if err != nil {
		s.ledger.ClearAll()
		return fmt.Errorf("load ledger: %w", err)
	}
	s.ledger.ReplaceAll(members, loans)
	slog.InfoContext(ctx, "Ledger loaded from storage",
		"members", len(members),
		"loans", len(loans))
	return nil
}

func (s *LedgerService) AddMember(ctx context.Context, name string, weeklyGoal decimal.Decimal) (core.Member, error) {
	m, err := s.ledger.AddMember(name, weeklyGoal)
	if err != nil {
		return core.Member{}, err
	}
	return m, s.persistAndNotify(ctx, "add_member")
}

func (s *LedgerService) UpdateMember(ctx context.Context, memberID, name string, weeklyGoal decimal.Decimal) error {
	if err := s.ledger.UpdateMember(memberID, name, weeklyGoal); err != nil {
		return err
	}
	return s.persistAndNotify(ctx, "update_member")
}

func (s *LedgerService) DeleteMember(ctx context.Context, memberID string) error {
	if err := s.ledger.DeleteMember(memberID); err != nil {
		return err
	}
	return s.persistAndNotify(ctx, "delete_member")
}

func (s *LedgerService) AddDeposit(ctx context.Context, memberID string, weekNumber int, penalty decimal.Decimal) (core.Deposit, error) {
	d, err := s.ledger.AddDeposit(memberID, weekNumber, penalty)
	if err != nil {
		return core.Deposit{}, err
	}
	return d, s.persistAndNotify(ctx, "add_deposit")
}

func (s *LedgerService) UpdateDeposit(ctx context.Context, memberID, depositID string, newPenalty decimal.Decimal) error {
	if err := s.ledger.UpdateDeposit(memberID, depositID, newPenalty); err != nil {
		return err
	}
	return s.persistAndNotify(ctx, "update_deposit")
}

func (s *LedgerService) DeleteDeposit(ctx context.Context, memberID, depositID string) error {
	if err := s.ledger.DeleteDeposit(memberID, depositID); err != nil {
		return err
	}
	return s.persistAndNotify(ctx, "delete_deposit")
}

func (s *LedgerService) AddLoan(ctx context.Context, memberID string, principal decimal.Decimal) (core.Loan, error) {
	loan, err := s.ledger.AddLoan(memberID, principal)
	if err != nil {
		return core.Loan{}, err
	}
	return loan, s.persistAndNotify(ctx, "add_loan")
}

func (s *LedgerService) DeleteLoan(ctx context.Context, loanID string) error {
	if err := s.ledger.DeleteLoan(loanID); err != nil {
		return err
	}
	return s.persistAndNotify(ctx, "delete_loan")
}

func (s *LedgerService) RecordLoanPayment(ctx context.Context, loanID string, amount decimal.Decimal) (core.LoanPayment, error) {
	p, err := s.ledger.RecordLoanPayment(loanID, amount)
	if err != nil {
		return core.LoanPayment{}, err
	}
	return p, s.persistAndNotify(ctx, "record_loan_payment")
}

func (s *LedgerService) UpdateLoanPayment(ctx context.Context, loanID, paymentID string, newAmount decimal.Decimal) error {
	if err := s.ledger.UpdateLoanPayment(loanID, paymentID, newAmount); err != nil {
		return err
	}
	return s.persistAndNotify(ctx, "update_loan_payment")
}

func (s *LedgerService) DeleteLoanPayment(ctx context.Context, loanID, paymentID string) error {
	if err := s.ledger.DeleteLoanPayment(loanID, paymentID); err != nil {
		return err
	}
	return s.persistAndNotify(ctx, "delete_loan_payment")
}

func (s *LedgerService) Members() []*core.Member { return s.ledger.Members() }
func (s *LedgerService) Loans() []*core.Loan     { return s.ledger.Loans() }
func (s *LedgerService) Summary() core.Summary   { return s.ledger.Summary() }

// ExportWorkbook serializes the current ledger and returns the bytes with
// the dated filename the download should use.
func (s *LedgerService) ExportWorkbook(ctx context.Context) ([]byte, string, error) {
	data, err := workbook.Export(s.ledger.Members(), s.ledger.Loans())
	if err != nil {
		return nil, "", fmt.Errorf("export workbook: %w", err)
	}
	name := workbook.BackupFilename(s.backupPrefix, time.Now())
	slog.InfoContext(ctx, "Ledger exported", "filename", name, "bytes", len(data))
	return data, name, nil
}

// ImportWorkbook parses the workbook and, only if the whole file parses,
// atomically replaces the ledger. A malformed file leaves current state
// untouched.
func (s *LedgerService) ImportWorkbook(ctx context.Context, data []byte) error {
	members, loans, err := workbook.Import(data)
	if err != nil {
		return err
	}
	s.ledger.ReplaceAll(members, loans)
	slog.InfoContext(ctx, "Ledger replaced from workbook",
		"members", len(members),
		"loans", len(loans))
	return s.persistAndNotify(ctx, "import")
}

// DeleteAllData clears the ledger and the durable store.
func (s *LedgerService) DeleteAllData(ctx context.Context) error {
	s.ledger.ClearAll()
	if s.storage != nil {
		if err := s.storage.Reset(ctx); err != nil {
			return err
		}
	}
	s.notify(ctx, "delete_all")
	return nil
}

// persistAndNotify writes the snapshot and announces the change. The
// mutation already happened; a storage failure is returned so the caller can
// warn that durability was lost, a publish failure is only logged.
func (s *LedgerService) persistAndNotify(ctx context.Context, operation string) error {
	s.notify(ctx, operation)

	if s.storage == nil {
		slog.WarnContext(ctx, "Storage not available, skipping persist", "operation", operation)
		return nil
	}
	if err := s.storage.SaveLedger(ctx, s.ledger.Members(), s.ledger.Loans()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist ledger, in-memory state is the only copy",
			"operation", operation,
			"error", err)
		return err
	}
	return nil
}

func (s *LedgerService) notify(ctx context.Context, operation string) {
	if s.amqpClient == nil {
		return
	}
	rev := s.revision.Add(1)
	if err := s.amqpClient.PublishLedgerChanged(ctx, rev, operation); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger changed message",
			"operation", operation,
			"revision", rev,
			"error", err)
		// Not fatal: the worker has a periodic safety net.
	}
}

// Close releases both outbound connections.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
