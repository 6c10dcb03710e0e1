package calculator

import (
	"time"

	"github.com/mmynk/housesplit/internal/models"
)

// PersonalSummary breaks one person's balance into what they fronted and
// what they consumed.
type PersonalSummary struct {
	Person string
	// Paid is the total fronted by the person across contributing expenses.
	Paid models.Money
	// Share is the total of the person's own shares.
	Share models.Money
	// Balance is Paid - Share and always equals the aggregated NetBalance.
	Balance models.Money
	Items   []models.LineItem
}

// Summarize returns one PersonalSummary per roster member, in roster order.
// Expenses that Aggregate would skip are skipped here too.
func Summarize(expenses []models.Expense, roster models.Roster, window *Window) []PersonalSummary {
	res := Aggregate(expenses, roster, window)

	paid := make(map[string]models.Money, len(roster))
	for _, e := range expenses {
		if window != nil && !window.Contains(e.Date) {
			continue
		}
		if !contributes(e, roster) {
			continue
		}
		paid[e.PaidBy] += e.Amount
	}

	out := make([]PersonalSummary, 0, len(roster))
	for _, b := range res.Ordered(roster) {
		var share models.Money
		for _, item := range b.Items {
			share += item.Amount
		}
		out = append(out, PersonalSummary{
			Person:  b.Person,
			Paid:    paid[b.Person],
			Share:   share,
			Balance: paid[b.Person] - share,
			Items:   b.Items,
		})
	}
	return out
}

// DashboardStats are the headline numbers of the expense list.
type DashboardStats struct {
	Count     int
	Total     models.Money
	ThisMonth models.Money
	// AverageShare is the mean share per sharer across all expenses.
	AverageShare models.Money
	PaidBy       map[string]models.Money
}

// Stats computes dashboard numbers over the expenses Aggregate would count,
// so the totals agree with the balance table. ThisMonth uses the calendar
// month of now.
func Stats(expenses []models.Expense, roster models.Roster, now time.Time) DashboardStats {
	stats := DashboardStats{PaidBy: make(map[string]models.Money)}
	current := MonthOf(now)
	sharers := 0
	for _, e := range expenses {
		if !contributes(e, roster) {
			continue
		}
		stats.Count++
		stats.Total += e.Amount
		stats.PaidBy[e.PaidBy] += e.Amount
		if MonthOf(e.Date.In(now.Location())) == current {
			stats.ThisMonth += e.Amount
		}
		sharers += len(models.UniqueSorted(e.SharedWith))
	}
	if sharers > 0 {
		stats.AverageShare = stats.Total.DivRoundHalfUp(sharers)
	}
	return stats
}

// contributes reports whether Aggregate would count e.
func contributes(e models.Expense, roster models.Roster) bool {
	if e.CheckParticipants(roster) != nil {
		return false
	}
	_, err := Allocate(e)
	return err == nil
}
