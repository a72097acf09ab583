package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary holds the fund-wide figures shown on the dashboard. Every field is
// recomputed from scratch on each call; nothing here is cached.
type Summary struct {
	MemberCount         int             `json:"memberCount"`
	TotalDeposits       decimal.Decimal `json:"totalDeposits"`
	TotalPenalties      decimal.Decimal `json:"totalPenalties"`
	TotalRegularSavings decimal.Decimal `json:"totalRegularSavings"`
	TotalLoanedOut      decimal.Decimal `json:"totalLoanedOut"`
	TotalInterestPaid   decimal.Decimal `json:"totalInterestPaid"`
	FundBalance         decimal.Decimal `json:"fundBalance"`
	TotalEarnings       decimal.Decimal `json:"totalEarnings"`
}

// interestPaid caps the interest credited to a loan at what has actually
// accrued; anything paid beyond that counts toward principal. Accrual is
// frozen at paidDate for closed loans and keeps growing for active ones.
func (l Loan) interestPaid(now time.Time) decimal.Decimal {
	asOf := now
	if l.PaidDate != nil {
		asOf = *l.PaidDate
	}
	accrued := l.AccruedInterest(asOf)
	paid := l.TotalPaid()
	if paid.LessThan(accrued) {
		return paid
	}
	return accrued
}

// Summarize aggregates the whole ledger into fund-wide totals.
//
// The cash balance models flow directly: every deposit comes in, every loan
// principal goes out at creation, and every payment comes back in regardless
// of its interest/principal split.
func Summarize(members []*Member, loans []*Loan, now time.Time) Summary {
	s := Summary{
		MemberCount:         len(members),
		TotalDeposits:       decimal.Zero,
		TotalPenalties:      decimal.Zero,
		TotalRegularSavings: decimal.Zero,
		TotalLoanedOut:      decimal.Zero,
		TotalInterestPaid:   decimal.Zero,
		FundBalance:         decimal.Zero,
		TotalEarnings:       decimal.Zero,
	}

	for _, m := range members {
		for _, d := range m.Deposits {
			s.TotalDeposits = s.TotalDeposits.Add(d.Amount)
			s.TotalPenalties = s.TotalPenalties.Add(d.Penalty)
		}
	}
	s.TotalRegularSavings = s.TotalDeposits.Sub(s.TotalPenalties)

	principalEverLoaned := decimal.Zero
	paymentsReceived := decimal.Zero
	for _, l := range loans {
		principalEverLoaned = principalEverLoaned.Add(l.PrincipalAmount)

		totalPaid := l.TotalPaid()
		paymentsReceived = paymentsReceived.Add(totalPaid)

		interestPaid := l.interestPaid(now)
		s.TotalInterestPaid = s.TotalInterestPaid.Add(interestPaid)

		if l.Status == LoanStatusActive {
			principalPaid := totalPaid.Sub(interestPaid)
			s.TotalLoanedOut = s.TotalLoanedOut.Add(l.PrincipalAmount.Sub(principalPaid))
		}
	}

	s.FundBalance = s.TotalDeposits.Sub(principalEverLoaned).Add(paymentsReceived)
	s.TotalEarnings = s.TotalPenalties.Add(s.TotalInterestPaid)
	return s
}
