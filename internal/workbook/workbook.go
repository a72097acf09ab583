// Package workbook flattens the ledger into a four-sheet .xlsx workbook and
// rebuilds it back. Deposits and loan payments travel on their own sheets,
// tagged with their owning member/loan id, so the nested graph survives the
// tabular form.
package workbook

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"caja/internal/core"
)

const (
	SheetMembers  = "Members"
	SheetDeposits = "Deposits"
	SheetLoans    = "Loans"
	SheetPayments = "Loan Payments"
)

var requiredSheets = []string{SheetMembers, SheetDeposits, SheetLoans, SheetPayments}

// BackupFilename yields the conventional backup name for a given day, e.g.
// caja-backup-2024-06-01.xlsx.
func BackupFilename(prefix string, date time.Time) string {
	return fmt.Sprintf("%s-backup-%s.xlsx", prefix, date.Format("2006-01-02"))
}

// Export serializes the ledger into workbook bytes.
func Export(members []*core.Member, loans []*core.Loan) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetMembers); err != nil {
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetDeposits, SheetLoans, SheetPayments} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	memberRows := [][]any{{"id", "name", "weeklyGoal", "joinDate"}}
	depositRows := [][]any{{"id", "date", "amount", "penalty", "weekNumber", "year", "memberId"}}
	for _, m := range members {
		memberRows = append(memberRows, []any{m.ID, m.Name, m.WeeklyGoal.String(), m.JoinDate.Format(time.RFC3339)})
		for _, d := range m.Deposits {
			depositRows = append(depositRows, []any{
				d.ID, d.Date.Format(time.RFC3339), d.Amount.String(), d.Penalty.String(),
				d.WeekNumber, d.Year, m.ID,
			})
		}
	}

	loanRows := [][]any{{"id", "memberId", "principalAmount", "loanDate", "status", "paidDate"}}
	paymentRows := [][]any{{"id", "date", "amount", "loanId"}}
	for _, l := range loans {
		paidDate := ""
		if l.PaidDate != nil {
			paidDate = l.PaidDate.Format(time.RFC3339)
		}
		loanRows = append(loanRows, []any{
			l.ID, l.MemberID, l.PrincipalAmount.String(), l.LoanDate.Format(time.RFC3339),
			string(l.Status), paidDate,
		})
		for _, p := range l.Payments {
			paymentRows = append(paymentRows, []any{p.ID, p.Date.Format(time.RFC3339), p.Amount.String(), l.ID})
		}
	}

	sheets := map[string][][]any{
		SheetMembers:  memberRows,
		SheetDeposits: depositRows,
		SheetLoans:    loanRows,
		SheetPayments: paymentRows,
	}
	for name, rows := range sheets {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return nil, fmt.Errorf("write %s row %d: %w", name, i+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Import parses workbook bytes back into a member/loan graph. Missing sheets
// are rejected up front, naming every absent one; child rows whose owning id
// has no parent are silently dropped.
func Import(data []byte) ([]*core.Member, []*core.Loan, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &core.MalformedImportError{Cause: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	var missing []string
	for _, name := range requiredSheets {
		idx, err := f.GetSheetIndex(name)
		if err != nil || idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &core.MalformedImportError{Missing: missing}
	}

	members, byMemberID, err := readMembers(f)
	if err != nil {
		return nil, nil, &core.MalformedImportError{Cause: err}
	}
	if err := readDeposits(f, byMemberID); err != nil {
		return nil, nil, &core.MalformedImportError{Cause: err}
	}
	loans, byLoanID, err := readLoans(f)
	if err != nil {
		return nil, nil, &core.MalformedImportError{Cause: err}
	}
	if err := readPayments(f, byLoanID); err != nil {
		return nil, nil, &core.MalformedImportError{Cause: err}
	}
	return members, loans, nil
}

// sheetTable is a header-indexed view of one sheet, tolerant of column order.
type sheetTable struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func readTable(f *excelize.File, name string) (*sheetTable, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	t := &sheetTable{name: name, columns: map[string]int{}}
	if len(rows) == 0 {
		return t, nil
	}
	for i, header := range rows[0] {
		t.columns[header] = i
	}
	t.rows = rows[1:]
	return t, nil
}

// cell returns the named column's value in the given row; trailing empty
// cells are trimmed by the reader, so out-of-range means empty.
func (t *sheetTable) cell(row []string, column string) string {
	idx, ok := t.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (t *sheetTable) decimal(row []string, column string, rowNum int) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(t.cell(row, column))
	if err != nil {
		return decimal.Zero, fmt.Errorf("sheet %s row %d: bad %s: %w", t.name, rowNum, column, err)
	}
	return v, nil
}

func (t *sheetTable) date(row []string, column string, rowNum int) (time.Time, error) {
	v, err := time.Parse(time.RFC3339, t.cell(row, column))
	if err != nil {
		return time.Time{}, fmt.Errorf("sheet %s row %d: bad %s: %w", t.name, rowNum, column, err)
	}
	return v, nil
}

func (t *sheetTable) int(row []string, column string, rowNum int) (int, error) {
	v, err := strconv.Atoi(t.cell(row, column))
	if err != nil {
		return 0, fmt.Errorf("sheet %s row %d: bad %s: %w", t.name, rowNum, column, err)
	}
	return v, nil
}

func readMembers(f *excelize.File) ([]*core.Member, map[string]*core.Member, error) {
	table, err := readTable(f, SheetMembers)
	if err != nil {
		return nil, nil, err
	}
	members := []*core.Member{}
	byID := map[string]*core.Member{}
	for i, row := range table.rows {
		rowNum := i + 2
		goal, err := table.decimal(row, "weeklyGoal", rowNum)
		if err != nil {
			return nil, nil, err
		}
		joined, err := table.date(row, "joinDate", rowNum)
		if err != nil {
			return nil, nil, err
		}
		m := &core.Member{
			ID:         table.cell(row, "id"),
			Name:       table.cell(row, "name"),
			WeeklyGoal: goal,
			JoinDate:   joined,
			Deposits:   []core.Deposit{},
		}
		members = append(members, m)
		byID[m.ID] = m
	}
	return members, byID, nil
}

func readDeposits(f *excelize.File, byMemberID map[string]*core.Member) error {
	table, err := readTable(f, SheetDeposits)
	if err != nil {
		return err
	}
	for i, row := range table.rows {
		rowNum := i + 2
		owner, ok := byMemberID[table.cell(row, "memberId")]
		if !ok {
			continue
		}
		amount, err := table.decimal(row, "amount", rowNum)
		if err != nil {
			return err
		}
		penalty, err := table.decimal(row, "penalty", rowNum)
		if err != nil {
			return err
		}
		date, err := table.date(row, "date", rowNum)
		if err != nil {
			return err
		}
		week, err := table.int(row, "weekNumber", rowNum)
		if err != nil {
			return err
		}
		year, err := table.int(row, "year", rowNum)
		if err != nil {
			return err
		}
		owner.Deposits = append(owner.Deposits, core.Deposit{
			ID: table.cell(row, "id"), Date: date, Amount: amount,
			Penalty: penalty, WeekNumber: week, Year: year,
		})
	}
	return nil
}

func readLoans(f *excelize.File) ([]*core.Loan, map[string]*core.Loan, error) {
	table, err := readTable(f, SheetLoans)
	if err != nil {
		return nil, nil, err
	}
	loans := []*core.Loan{}
	byID := map[string]*core.Loan{}
	for i, row := range table.rows {
		rowNum := i + 2
		principal, err := table.decimal(row, "principalAmount", rowNum)
		if err != nil {
			return nil, nil, err
		}
		loanDate, err := table.date(row, "loanDate", rowNum)
		if err != nil {
			return nil, nil, err
		}
		l := &core.Loan{
			ID:              table.cell(row, "id"),
			MemberID:        table.cell(row, "memberId"),
			PrincipalAmount: principal,
			LoanDate:        loanDate,
			Status:          core.LoanStatus(table.cell(row, "status")),
			Payments:        []core.LoanPayment{},
		}
		if raw := table.cell(row, "paidDate"); raw != "" {
			paid, err := table.date(row, "paidDate", rowNum)
			if err != nil {
				return nil, nil, err
			}
			l.PaidDate = &paid
		}
		loans = append(loans, l)
		byID[l.ID] = l
	}
	return loans, byID, nil
}

func readPayments(f *excelize.File, byLoanID map[string]*core.Loan) error {
	table, err := readTable(f, SheetPayments)
	if err != nil {
		return err
	}
	for i, row := range table.rows {
		rowNum := i + 2
		owner, ok := byLoanID[table.cell(row, "loanId")]
		if !ok {
			continue
		}
		amount, err := table.decimal(row, "amount", rowNum)
		if err != nil {
			return err
		}
		date, err := table.date(row, "date", rowNum)
		if err != nil {
			return err
		}
		owner.Payments = append(owner.Payments, core.LoanPayment{
			ID: table.cell(row, "id"), Date: date, Amount: amount,
		})
	}
	return nil
}
