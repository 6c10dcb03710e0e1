package calculator

import (
	"fmt"
	"sort"
	"time"

	"github.com/mmynk/housesplit/internal/models"
)

// Window is an inclusive time range [Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Result is the output of one aggregation.
type Result struct {
	// Balances has exactly one entry per roster member.
	Balances map[string]models.PersonBalance

	// Skipped lists the expenses left out because they could not be allocated
	// or referenced someone outside the roster.
	Skipped []models.SkippedRecord

	// Count is the number of expenses that contributed to Balances.
	Count int

	// Total is the sum of the contributing expense amounts.
	Total models.Money
}

// Ordered returns the balances in roster order.
func (r Result) Ordered(roster models.Roster) []models.PersonBalance {
	out := make([]models.PersonBalance, 0, len(roster))
	for _, person := range roster {
		out = append(out, r.Balances[person])
	}
	return out
}

// NetSum adds up every net balance. It is zero for any well-formed result.
func (r Result) NetSum() models.Money {
	var sum models.Money
	for _, b := range r.Balances {
		sum += b.NetBalance
	}
	return sum
}

// Aggregate folds expenses into per-person balances for the roster.
//
// When window is non-nil only expenses dated inside it are considered.
// Expenses that fail allocation or name someone outside the roster are
// skipped and reported in Result.Skipped rather than failing the whole
// aggregation. The result does not depend on the order of expenses.
//
// Algorithm:
//   - every roster member starts at zero with no items
//   - payer's balance += PayerNet
//   - every sharer other than the payer: balance -= their share
//   - every sharer, payer included, gets a line item for their share
func Aggregate(expenses []models.Expense, roster models.Roster, window *Window) Result {
	balances := make(map[string]*models.PersonBalance, len(roster))
	for _, person := range roster {
		balances[person] = &models.PersonBalance{Person: person, Items: []models.LineItem{}}
	}

	res := Result{}
	for _, e := range expenses {
		if window != nil && !window.Contains(e.Date) {
			continue
		}

		if err := e.CheckParticipants(roster); err != nil {
			res.Skipped = append(res.Skipped, skipped(e, err))
			continue
		}
		alloc, err := Allocate(e)
		if err != nil {
			res.Skipped = append(res.Skipped, skipped(e, err))
			continue
		}

		balances[e.PaidBy].NetBalance += alloc.PayerNet
		for person, share := range alloc.Shares {
			b := balances[person]
			if person != e.PaidBy {
				b.NetBalance -= share
			}
			b.Items = append(b.Items, models.LineItem{
				ExpenseID:   e.ID,
				Description: e.Description,
				Date:        e.Date,
				Amount:      share,
				PaidBy:      e.PaidBy,
			})
		}
		res.Count++
		res.Total += e.Amount
	}

	res.Balances = make(map[string]models.PersonBalance, len(balances))
	for person, b := range balances {
		sortItems(b.Items)
		res.Balances[person] = *b
	}
	sort.Slice(res.Skipped, func(i, j int) bool {
		if res.Skipped[i].ExpenseID != res.Skipped[j].ExpenseID {
			return res.Skipped[i].ExpenseID < res.Skipped[j].ExpenseID
		}
		return res.Skipped[i].Description < res.Skipped[j].Description
	})
	return res
}

func skipped(e models.Expense, err error) models.SkippedRecord {
	return models.SkippedRecord{
		ExpenseID:   e.ID,
		Description: e.Description,
		Reason:      fmt.Sprint(err),
	}
}

// sortItems orders line items by date, then expense ID, then description.
func sortItems(items []models.LineItem) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ExpenseID != b.ExpenseID {
			return a.ExpenseID < b.ExpenseID
		}
		if a.Description != b.Description {
			return a.Description < b.Description
		}
		return a.Amount < b.Amount
	})
}
