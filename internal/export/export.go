// Package export writes the expense ledger and monthly balances to an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/housesplit/internal/calculator"
	"github.com/mmynk/housesplit/internal/models"
)

// ExpensesSheet is the name of the sheet listing every expense.
const ExpensesSheet = "Expenses"

var expenseHeaders = []string{
	"Date",
	"Description",
	"Category",
	"Paid By",
	"Shared With",
	"Amount",
	"Share",
}

// Workbook builds a workbook with one sheet listing every expense followed
// by one balance sheet per month, most recent month first. Month sheets are
// named "YYYY-MM".
func Workbook(expenses []models.Expense, roster models.Roster) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ExpensesSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeExpenses(f, expenses); err != nil {
		f.Close()
		return nil, err
	}

	for _, m := range calculator.AggregateByMonth(expenses, roster) {
		if err := writeMonth(f, m, roster); err != nil {
			f.Close()
			return nil, fmt.Errorf("month %s: %w", m.Month, err)
		}
	}

	index, _ := f.GetSheetIndex(ExpensesSheet)
	f.SetActiveSheet(index)
	return f, nil
}

// Write builds the workbook and writes it to w.
func Write(w io.Writer, expenses []models.Expense, roster models.Roster) error {
	start := time.Now()
	f, err := Workbook(expenses, roster)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	slog.Info("Exported workbook",
		"expenses", len(expenses),
		"sheets", len(f.GetSheetList()),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeExpenses(f *excelize.File, expenses []models.Expense) error {
	const sheet = ExpensesSheet
	if err := writeRow(f, sheet, 1, toAny(expenseHeaders)); err != nil {
		return err
	}

	row := 2
	for _, e := range expenses {
		share := ""
		if alloc, err := calculator.Allocate(e); err == nil {
			share = alloc.Share.String()
		}
		values := []any{
			e.Date.Format("2006-01-02"),
			e.Description,
			string(e.Category),
			e.PaidBy,
			strings.Join(e.SharedWith, ", "),
			e.Amount.Float(),
			share,
		}
		if err := writeRow(f, sheet, row, values); err != nil {
			return err
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 12) // date
	_ = f.SetColWidth(sheet, "B", "B", 32) // description
	_ = f.SetColWidth(sheet, "C", "D", 16)
	_ = f.SetColWidth(sheet, "E", "E", 36) // sharers
	_ = f.SetColWidth(sheet, "F", "G", 12) // amounts
	return nil
}

func writeMonth(f *excelize.File, m calculator.MonthlyResult, roster models.Roster) error {
	sheet := m.Month.String()
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{
		{m.Month.Label()},
		{"Expenses", m.Count, "Total", m.Total.Float()},
		{},
		{"Person", "Net Balance", "Items"},
	}
	for _, b := range m.Ordered(roster) {
		rows = append(rows, []any{b.Person, b.NetBalance.Float(), len(b.Items)})
	}
	if len(m.Skipped) > 0 {
		rows = append(rows, []any{}, []any{"Skipped", "Reason"})
		for _, s := range m.Skipped {
			rows = append(rows, []any{s.Description, s.Reason})
		}
	}

	for i, values := range rows {
		if err := writeRow(f, sheet, i+1, values); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "D", 14)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
