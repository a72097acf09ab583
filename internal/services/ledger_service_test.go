package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"caja/internal/ledger"
)

// The service tolerates absent storage and AMQP collaborators: mutations
// stay in memory and nothing panics.
func TestLedgerServiceWithoutCollaborators(t *testing.T) {
	svc := NewLedgerService(ledger.New(), nil, nil, "caja")
	ctx := context.Background()

	if err := svc.LoadFromStorage(ctx); err != nil {
		t.Fatalf("LoadFromStorage with nil storage: %v", err)
	}

	m, err := svc.AddMember(ctx, "Ana", decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := svc.AddDeposit(ctx, m.ID, 1, decimal.Zero); err != nil {
		t.Fatalf("AddDeposit: %v", err)
	}

	if got := svc.Summary(); got.MemberCount != 1 {
		t.Errorf("MemberCount = %d, want 1", got.MemberCount)
	}
}

func TestExportImportThroughService(t *testing.T) {
	svc := NewLedgerService(ledger.New(), nil, nil, "caja")
	ctx := context.Background()

	m, err := svc.AddMember(ctx, "Ana", decimal.NewFromInt(25))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddDeposit(ctx, m.ID, 3, decimal.NewFromInt(5)); err != nil {
		t.Fatal(err)
	}

	data, name, err := svc.ExportWorkbook(ctx)
	if err != nil {
		t.Fatalf("ExportWorkbook: %v", err)
	}
	if name == "" || len(data) == 0 {
		t.Fatalf("export returned name=%q, %d bytes", name, len(data))
	}

	// A fresh service imports the export and sees the same graph.
	other := NewLedgerService(ledger.New(), nil, nil, "caja")
	if err := other.ImportWorkbook(ctx, data); err != nil {
		t.Fatalf("ImportWorkbook: %v", err)
	}
	members := other.Members()
	if len(members) != 1 || members[0].Name != "Ana" || len(members[0].Deposits) != 1 {
		t.Errorf("import mismatch: %+v", members)
	}

	// Garbage input must leave the current ledger untouched.
	if err := other.ImportWorkbook(ctx, []byte("junk")); err == nil {
		t.Fatal("expected import error")
	}
	if len(other.Members()) != 1 {
		t.Error("failed import mutated the ledger")
	}
}

func TestDeleteAllData(t *testing.T) {
	svc := NewLedgerService(ledger.New(), nil, nil, "caja")
	ctx := context.Background()

	if _, err := svc.AddMember(ctx, "Ana", decimal.NewFromInt(25)); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteAllData(ctx); err != nil {
		t.Fatalf("DeleteAllData: %v", err)
	}
	if len(svc.Members()) != 0 || len(svc.Loans()) != 0 {
		t.Error("DeleteAllData left data behind")
	}
}

func TestClose(t *testing.T) {
	svc := NewLedgerService(ledger.New(), nil, nil, "caja")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close with nil components: %v", err)
	}
}
