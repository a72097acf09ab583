package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive LoanStatus = "active"
	LoanStatusPaid   LoanStatus = "paid"
)

// MonthlyInterestRate is the flat simple interest charged per elapsed month,
// as a fraction of the loan principal. Interest never compounds.
var MonthlyInterestRate = decimal.RequireFromString("0.05")

// Tolerance absorbs rounding drift when comparing payments against a loan
// balance. A payment may exceed the outstanding balance by at most this much.
var Tolerance = decimal.RequireFromString("0.001")

type (
	LoanStatus string

	// Member is a savings-club member with their chronological deposit history.
	Member struct {
		ID         string          `json:"id"`
		Name       string          `json:"name"`
		WeeklyGoal decimal.Decimal `json:"weeklyGoal"`
		JoinDate   time.Time       `json:"joinDate"`
		Deposits   []Deposit       `json:"deposits"`
	}

	// Deposit is one weekly savings payment. Amount snapshots the member's
	// weekly goal at registration time plus any late penalty, so later goal
	// changes never rewrite history.
	Deposit struct {
		ID         string          `json:"id"`
		Date       time.Time       `json:"date"`
		Amount     decimal.Decimal `json:"amount"`
		Penalty    decimal.Decimal `json:"penalty"`
		WeekNumber int             `json:"weekNumber"`
		Year       int             `json:"year"`
	}

	// Loan references its member by id only; deleting a member requires all
	// their loans to be gone first.
	Loan struct {
		ID              string          `json:"id"`
		MemberID        string          `json:"memberId"`
		PrincipalAmount decimal.Decimal `json:"principalAmount"`
		LoanDate        time.Time       `json:"loanDate"`
		Status          LoanStatus      `json:"status"`
		Payments        []LoanPayment   `json:"payments"`
		// PaidDate is set exactly once, when the loan first transitions to
		// paid. It is cleared only if a payment edit reopens the loan.
		PaidDate *time.Time `json:"paidDate,omitempty"`
	}

	LoanPayment struct {
		ID     string          `json:"id"`
		Date   time.Time       `json:"date"`
		Amount decimal.Decimal `json:"amount"`
	}
)

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if !m.WeeklyGoal.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (d Deposit) Validate() error {
	if d.WeekNumber < 1 {
		return ErrInvalidWeek
	}
	if d.Penalty.IsNegative() {
		return ErrNegativePenalty
	}
	return nil
}

func (l Loan) Validate() error {
	if l.MemberID == "" {
		return ErrUnknownMember
	}
	if !l.PrincipalAmount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (p LoanPayment) Validate() error {
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// TotalPaid sums all payments recorded against the loan.
func (l Loan) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// AccruedInterest computes the simple interest owed as of the given instant:
// principal x rate x elapsed whole months since the loan date. Always
// re-derived, never stored.
func (l Loan) AccruedInterest(asOf time.Time) decimal.Decimal {
	months := MonthsElapsed(l.LoanDate, asOf)
	return l.PrincipalAmount.Mul(MonthlyInterestRate).Mul(decimal.NewFromInt(int64(months)))
}

// OutstandingBalance is principal + accrued interest - total paid, as of now.
func (l Loan) OutstandingBalance(now time.Time) decimal.Decimal {
	return l.PrincipalAmount.Add(l.AccruedInterest(now)).Sub(l.TotalPaid())
}

// SortMembers orders members by name, case-insensitively, ties broken by the
// exact name so the order is deterministic.
func SortMembers(members []*Member) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := strings.ToLower(members[i].Name), strings.ToLower(members[j].Name)
		if a != b {
			return a < b
		}
		return members[i].Name < members[j].Name
	})
}

// SortDeposits orders deposits chronologically by savings year, then week.
func SortDeposits(deposits []Deposit) {
	sort.SliceStable(deposits, func(i, j int) bool {
		if deposits[i].Year != deposits[j].Year {
			return deposits[i].Year < deposits[j].Year
		}
		return deposits[i].WeekNumber < deposits[j].WeekNumber
	})
}
