// Package ledger implements the in-memory ledger store: the single owner of
// the member and loan collections and of every mutation over them. All
// operations run inside one critical section and either fully succeed or
// leave the ledger untouched.
package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"caja/internal/core"
)

// Ledger is the aggregate root for the whole fund. Callers never receive
// internal pointers: read accessors return deep copies.
type Ledger struct {
	mu      sync.Mutex
	members []*core.Member
	loans   []*core.Loan
	now     func() time.Time
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

// AddMember creates a member with an empty deposit history and keeps the
// collection sorted by name.
func (l *Ledger) AddMember(name string, weeklyGoal decimal.Decimal) (core.Member, error) {
	m := core.Member{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(name),
		WeeklyGoal: weeklyGoal,
		Deposits:   []core.Deposit{},
	}
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	m.JoinDate = l.now()
	l.members = append(l.members, &m)
	core.SortMembers(l.members)
	return copyMember(&m), nil
}

// UpdateMember renames a member and/or changes their weekly goal. The
// collection is re-sorted so a rename never leaves a stale order.
func (l *Ledger) UpdateMember(memberID, name string, weeklyGoal decimal.Decimal) error {
	probe := core.Member{ID: memberID, Name: strings.TrimSpace(name), WeeklyGoal: weeklyGoal}
	if err := probe.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.findMember(memberID)
	if m == nil {
		return nil
	}
	m.Name = probe.Name
	m.WeeklyGoal = weeklyGoal
	core.SortMembers(l.members)
	return nil
}

// DeleteMember removes a member and all their deposits. It fails while any
// loan, active or paid, still references the member.
func (l *Ledger) DeleteMember(memberID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, loan := range l.loans {
		if loan.MemberID == memberID {
			return core.ErrMemberHasLoans
		}
	}
	kept := l.members[:0]
	for _, m := range l.members {
		if m.ID != memberID {
			kept = append(kept, m)
		}
	}
	l.members = kept
	return nil
}

// AddDeposit registers a weekly savings payment. The savings year is derived
// from the current date; the amount snapshots the member's goal plus penalty.
// A second deposit for the same member, year and week is rejected.
func (l *Ledger) AddDeposit(memberID string, weekNumber int, penalty decimal.Decimal) (core.Deposit, error) {
	d := core.Deposit{
		ID:         uuid.NewString(),
		WeekNumber: weekNumber,
		Penalty:    penalty,
	}
	if err := d.Validate(); err != nil {
		return core.Deposit{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.findMember(memberID)
	if m == nil {
		return core.Deposit{}, core.ErrUnknownMember
	}

	now := l.now()
	d.Date = now
	d.Year = core.CurrentSavingsYear(now)
	for _, existing := range m.Deposits {
		if existing.WeekNumber == weekNumber && existing.Year == d.Year {
			return core.Deposit{}, core.ErrDuplicateDeposit
		}
	}

	d.Amount = m.WeeklyGoal.Add(penalty)
	m.Deposits = append(m.Deposits, d)
	core.SortDeposits(m.Deposits)
	return d, nil
}

// UpdateDeposit changes a deposit's penalty and recomputes its amount from
// the member's current weekly goal. Unknown ids are a silent no-op: the
// collaborator is expected to have validated existence.
func (l *Ledger) UpdateDeposit(memberID, depositID string, newPenalty decimal.Decimal) error {
	if newPenalty.IsNegative() {
		return core.ErrNegativePenalty
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.findMember(memberID)
	if m == nil {
		return nil
	}
	for i := range m.Deposits {
		if m.Deposits[i].ID == depositID {
			m.Deposits[i].Penalty = newPenalty
			m.Deposits[i].Amount = m.WeeklyGoal.Add(newPenalty)
			return nil
		}
	}
	return nil
}

func (l *Ledger) DeleteDeposit(memberID, depositID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.findMember(memberID)
	if m == nil {
		return nil
	}
	for i := range m.Deposits {
		if m.Deposits[i].ID == depositID {
			m.Deposits = append(m.Deposits[:i], m.Deposits[i+1:]...)
			return nil
		}
	}
	return nil
}

// AddLoan issues a loan to a member. The principal may not exceed the fund's
// available cash at the time of issue.
func (l *Ledger) AddLoan(memberID string, principal decimal.Decimal) (core.Loan, error) {
	loan := core.Loan{
		ID:              uuid.NewString(),
		MemberID:        memberID,
		PrincipalAmount: principal,
		Status:          core.LoanStatusActive,
		Payments:        []core.LoanPayment{},
	}
	if err := loan.Validate(); err != nil {
		return core.Loan{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findMember(memberID) == nil {
		return core.Loan{}, core.ErrUnknownMember
	}

	now := l.now()
	balance := core.Summarize(l.members, l.loans, now).FundBalance
	if principal.GreaterThan(balance) {
		return core.Loan{}, core.ErrInsufficientFunds
	}

	loan.LoanDate = now
	l.loans = append(l.loans, &loan)
	return copyLoan(&loan), nil
}

// DeleteLoan removes a loan and every payment recorded against it.
func (l *Ledger) DeleteLoan(loanID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.loans[:0]
	for _, loan := range l.loans {
		if loan.ID != loanID {
			kept = append(kept, loan)
		}
	}
	l.loans = kept
	return nil
}

// RecordLoanPayment appends a payment against the loan's outstanding balance
// (principal + interest accrued so far, less prior payments). A payment that
// overshoots the balance beyond tolerance is rejected with no mutation. When
// the new total settles the loan, the status flips to paid and the paid date
// is set once; it is never overwritten by later recomputation.
func (l *Ledger) RecordLoanPayment(loanID string, amount decimal.Decimal) (core.LoanPayment, error) {
	p := core.LoanPayment{ID: uuid.NewString(), Amount: amount}
	if err := p.Validate(); err != nil {
		return core.LoanPayment{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	loan := l.findLoan(loanID)
	if loan == nil {
		return core.LoanPayment{}, nil
	}

	now := l.now()
	interest := loan.AccruedInterest(now)
	totalOwed := loan.PrincipalAmount.Add(interest)
	totalPaid := loan.TotalPaid()
	balance := totalOwed.Sub(totalPaid)
	if amount.GreaterThan(balance.Add(core.Tolerance)) {
		return core.LoanPayment{}, core.ErrOverpayment
	}

	p.Date = now
	loan.Payments = append(loan.Payments, p)
	if totalPaid.Add(amount).GreaterThanOrEqual(totalOwed.Sub(core.Tolerance)) {
		loan.Status = core.LoanStatusPaid
		if loan.PaidDate == nil {
			paid := now
			loan.PaidDate = &paid
		}
	} else {
		loan.Status = core.LoanStatusActive
	}
	return p, nil
}

// UpdateLoanPayment edits a payment's amount. The balance check excludes the
// payment being edited; afterwards the status is recomputed from the new
// total and may flip either way. Reopening a loan clears its paid date.
func (l *Ledger) UpdateLoanPayment(loanID, paymentID string, newAmount decimal.Decimal) error {
	if !newAmount.IsPositive() {
		return core.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	loan := l.findLoan(loanID)
	if loan == nil {
		return nil
	}

	idx := -1
	otherTotal := decimal.Zero
	for i, p := range loan.Payments {
		if p.ID == paymentID {
			idx = i
			continue
		}
		otherTotal = otherTotal.Add(p.Amount)
	}
	if idx < 0 {
		return nil
	}

	now := l.now()
	totalOwed := loan.PrincipalAmount.Add(loan.AccruedInterest(now))
	balance := totalOwed.Sub(otherTotal)
	if newAmount.GreaterThan(balance.Add(core.Tolerance)) {
		return core.ErrOverpayment
	}

	loan.Payments[idx].Amount = newAmount
	l.settleStatus(loan, otherTotal.Add(newAmount), totalOwed, now)
	return nil
}

// DeleteLoanPayment removes a payment and recomputes the loan's status from
// the reduced total, with the same paid-date rules as an edit.
func (l *Ledger) DeleteLoanPayment(loanID, paymentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	loan := l.findLoan(loanID)
	if loan == nil {
		return nil
	}
	for i := range loan.Payments {
		if loan.Payments[i].ID == paymentID {
			loan.Payments = append(loan.Payments[:i], loan.Payments[i+1:]...)
			now := l.now()
			totalOwed := loan.PrincipalAmount.Add(loan.AccruedInterest(now))
			l.settleStatus(loan, loan.TotalPaid(), totalOwed, now)
			return nil
		}
	}
	return nil
}

// settleStatus applies the paid/active transition rules after a payment edit
// or deletion. Caller holds the mutex.
func (l *Ledger) settleStatus(loan *core.Loan, totalPaid, totalOwed decimal.Decimal, now time.Time) {
	if totalPaid.GreaterThanOrEqual(totalOwed.Sub(core.Tolerance)) {
		loan.Status = core.LoanStatusPaid
		if loan.PaidDate == nil {
			paid := now
			loan.PaidDate = &paid
		}
		return
	}
	loan.Status = core.LoanStatusActive
	loan.PaidDate = nil
}

// ReplaceAll atomically swaps in a whole new member/loan graph (import).
func (l *Ledger) ReplaceAll(members []*core.Member, loans []*core.Loan) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.members = make([]*core.Member, 0, len(members))
	for _, m := range members {
		cp := copyMember(m)
		l.members = append(l.members, &cp)
	}
	core.SortMembers(l.members)
	l.loans = make([]*core.Loan, 0, len(loans))
	for _, loan := range loans {
		cp := copyLoan(loan)
		l.loans = append(l.loans, &cp)
	}
}

// ClearAll empties both collections.
func (l *Ledger) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.members = nil
	l.loans = nil
}

// Members returns a deep-copied snapshot of all members, sorted by name.
func (l *Ledger) Members() []*core.Member {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*core.Member, 0, len(l.members))
	for _, m := range l.members {
		cp := copyMember(m)
		out = append(out, &cp)
	}
	return out
}

// Loans returns a deep-copied snapshot of all loans.
func (l *Ledger) Loans() []*core.Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*core.Loan, 0, len(l.loans))
	for _, loan := range l.loans {
		cp := copyLoan(loan)
		out = append(out, &cp)
	}
	return out
}

// Summary recomputes the fund-wide aggregation over the current state.
func (l *Ledger) Summary() core.Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return core.Summarize(l.members, l.loans, l.now())
}

func (l *Ledger) findMember(id string) *core.Member {
	for _, m := range l.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (l *Ledger) findLoan(id string) *core.Loan {
	for _, loan := range l.loans {
		if loan.ID == id {
			return loan
		}
	}
	return nil
}

func copyMember(m *core.Member) core.Member {
	cp := *m
	cp.Deposits = append([]core.Deposit(nil), m.Deposits...)
	return cp
}

func copyLoan(l *core.Loan) core.Loan {
	cp := *l
	cp.Payments = append([]core.LoanPayment(nil), l.Payments...)
	if l.PaidDate != nil {
		paid := *l.PaidDate
		cp.PaidDate = &paid
	}
	return cp
}
