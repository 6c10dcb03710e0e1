package api

import (
	"github.com/mmynk/housesplit/internal/calculator"
	"github.com/mmynk/housesplit/internal/models"
)

// FromExpense converts a domain expense to its wire form.
func FromExpense(e models.Expense) Expense {
	return Expense{
		ID:          e.ID,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    string(e.Category),
		PaidBy:      e.PaidBy,
		Date:        e.Date,
		SharedWith:  e.SharedWith,
		Image:       e.Image,
		CreatedAt:   e.CreatedAt,
	}
}

// ToExpense converts a wire expense to the domain type. The category is
// matched case-insensitively; an unknown category is kept verbatim so that
// validation reports it.
func (e Expense) ToExpense() models.Expense {
	category := models.Category(e.Category)
	if c, err := models.ParseCategory(e.Category); err == nil {
		category = c
	}
	return models.Expense{
		ID:          e.ID,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    category,
		PaidBy:      e.PaidBy,
		Date:        e.Date,
		SharedWith:  e.SharedWith,
		Image:       e.Image,
		CreatedAt:   e.CreatedAt,
	}
}

// FromItems converts line items.
func FromItems(items []models.LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, LineItem{
			ExpenseID:   it.ExpenseID,
			Description: it.Description,
			Date:        it.Date,
			Amount:      it.Amount,
			PaidBy:      it.PaidBy,
		})
	}
	return out
}

// FromBalances converts balances, preserving order.
func FromBalances(balances []models.PersonBalance) []PersonBalance {
	out := make([]PersonBalance, 0, len(balances))
	for _, b := range balances {
		out = append(out, PersonBalance{
			Person:     b.Person,
			NetBalance: b.NetBalance,
			Items:      FromItems(b.Items),
		})
	}
	return out
}

// FromSkipped converts skipped records.
func FromSkipped(skipped []models.SkippedRecord) []SkippedRecord {
	if len(skipped) == 0 {
		return nil
	}
	out := make([]SkippedRecord, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, SkippedRecord{ExpenseID: s.ExpenseID, Description: s.Description, Reason: s.Reason})
	}
	return out
}

// FromMonthly converts one month's result with balances in roster order.
func FromMonthly(m calculator.MonthlyResult, roster models.Roster) MonthlyBalances {
	return MonthlyBalances{
		Month:    m.Month.String(),
		Label:    m.Month.Label(),
		Count:    m.Count,
		Total:    m.Total,
		Balances: FromBalances(m.Ordered(roster)),
		Skipped:  FromSkipped(m.Skipped),
	}
}

// FromCard converts a payout card, masking its number.
func FromCard(c models.PayoutCard) PayoutCard {
	return PayoutCard{Person: c.Person, Masked: c.Masked(), UpdatedAt: c.UpdatedAt}
}
