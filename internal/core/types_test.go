package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMemberValidate(t *testing.T) {
	good := Member{ID: "m1", Name: "Ana", WeeklyGoal: decimal.NewFromInt(25)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Member{
		{ID: "m1", Name: "", WeeklyGoal: decimal.NewFromInt(25)},
		{ID: "m1", Name: "   ", WeeklyGoal: decimal.NewFromInt(25)},
		{ID: "m1", Name: "Ana", WeeklyGoal: decimal.Zero},
		{ID: "m1", Name: "Ana", WeeklyGoal: decimal.NewFromInt(-5)},
	}
	for i, m := range bads {
		if err := m.Validate(); err == nil {
			t.Errorf("case %d expected error", i)
		}
	}
}

func TestDepositValidate(t *testing.T) {
	if err := (Deposit{WeekNumber: 1, Penalty: decimal.Zero}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Deposit{WeekNumber: 0, Penalty: decimal.Zero}).Validate(); err == nil {
		t.Error("expected error for week 0")
	}
	if err := (Deposit{WeekNumber: 1, Penalty: decimal.NewFromInt(-1)}).Validate(); err == nil {
		t.Error("expected error for negative penalty")
	}
}

func TestLoanAccrual(t *testing.T) {
	loanDate := utc(2024, time.January, 10)
	loan := Loan{
		ID:              "l1",
		MemberID:        "m1",
		PrincipalAmount: decimal.NewFromInt(1000),
		LoanDate:        loanDate,
		Status:          LoanStatusActive,
	}

	// First month is charged immediately: 1000 x 0.05 x 1.
	if got := loan.AccruedInterest(loanDate); !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("AccruedInterest(day 0) = %s, want 50", got)
	}
	// Three elapsed months.
	if got := loan.AccruedInterest(utc(2024, time.March, 10)); !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("AccruedInterest(+2 months) = %s, want 150", got)
	}

	loan.Payments = []LoanPayment{
		{ID: "p1", Date: loanDate, Amount: decimal.NewFromInt(600)},
		{ID: "p2", Date: loanDate, Amount: decimal.NewFromInt(400)},
	}
	if got := loan.TotalPaid(); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("TotalPaid = %s, want 1000", got)
	}
	if got := loan.OutstandingBalance(loanDate); !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("OutstandingBalance = %s, want 50", got)
	}
}

func TestSortMembers(t *testing.T) {
	members := []*Member{
		{Name: "carla"},
		{Name: "Ana"},
		{Name: "Beto"},
		{Name: "ana"},
	}
	SortMembers(members)
	want := []string{"Ana", "ana", "Beto", "carla"}
	for i, w := range want {
		if members[i].Name != w {
			t.Fatalf("position %d = %q, want %q", i, members[i].Name, w)
		}
	}
}

func TestSortDeposits(t *testing.T) {
	deposits := []Deposit{
		{WeekNumber: 3, Year: 2024},
		{WeekNumber: 1, Year: 2025},
		{WeekNumber: 1, Year: 2024},
	}
	SortDeposits(deposits)
	if deposits[0].WeekNumber != 1 || deposits[0].Year != 2024 {
		t.Errorf("first deposit = week %d year %d", deposits[0].WeekNumber, deposits[0].Year)
	}
	if deposits[2].Year != 2025 {
		t.Errorf("last deposit year = %d, want 2025", deposits[2].Year)
	}
}
