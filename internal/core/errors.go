package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors surfaced to the collaborator. The caller maps these to user
// messaging; the core never returns UI text.
var (
	ErrEmptyName       = errors.New("member name cannot be empty")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidWeek     = errors.New("week number must be at least 1")
	ErrNegativePenalty = errors.New("penalty cannot be negative")
	ErrUnknownMember   = errors.New("member not found")

	// ErrDuplicateDeposit: a deposit already exists for that member, savings
	// year and week.
	ErrDuplicateDeposit = errors.New("deposit already registered for this week")

	// ErrOverpayment: the payment exceeds the loan's outstanding balance
	// beyond tolerance.
	ErrOverpayment = errors.New("payment exceeds outstanding balance")

	// ErrInsufficientFunds: the requested principal exceeds the fund's
	// available cash.
	ErrInsufficientFunds = errors.New("loan amount exceeds available funds")

	// ErrMemberHasLoans: the member is referenced by at least one loan, of
	// any status, and cannot be deleted.
	ErrMemberHasLoans = errors.New("member has existing loans")
)

// MalformedImportError reports a tabular import rejected before any state
// changed: required sheets are missing, the file is not a readable workbook,
// or a row failed to parse.
type MalformedImportError struct {
	Missing []string
	Cause   error
}

func (e *MalformedImportError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("invalid workbook: missing required sheets: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid workbook: %v", e.Cause)
}

func (e *MalformedImportError) Unwrap() error { return e.Cause }

// IsValidationError reports whether err is one of the input-shape errors, as
// opposed to a business-rule rejection.
func IsValidationError(err error) bool {
	for _, v := range []error{ErrEmptyName, ErrInvalidAmount, ErrInvalidWeek, ErrNegativePenalty, ErrUnknownMember} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
