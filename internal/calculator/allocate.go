package calculator

import (
	"fmt"

	"github.com/mmynk/housesplit/internal/models"
)

// Allocation is the effect of one expense on its participants' balances.
type Allocation struct {
	// Share is the nominal per-person share: amount / |sharers|, rounded
	// half-up to the minor unit.
	Share models.Money

	// PayerNet is what the payer is owed because of this expense:
	// amount minus the payer's own share if the payer is a sharer, else amount.
	PayerNet models.Money

	// Shares holds each sharer's actual share. They sum to the amount exactly.
	Shares map[string]models.Money

	// Absorber is the sharer first in line for the rounding remainder.
	Absorber string
}

// Allocate computes the fair shares of one expense.
//
// Rounding policy:
//   - Share = amount / n, rounded half-up to the minor unit.
//   - The difference amount - Share*n is spread one minor unit per sharer,
//     starting with the absorber (the payer when the payer is a sharer,
//     otherwise the lexicographically last sharer) and continuing through
//     the other sharers in lexicographic order.
//
// Shares always add back up to the amount and none differs from Share by
// more than one minor unit.
func Allocate(e models.Expense) (Allocation, error) {
	if e.Amount <= 0 {
		return Allocation{}, fmt.Errorf("%w: amount must be positive, got %s", models.ErrInvalidExpense, e.Amount)
	}
	sharers := models.UniqueSorted(e.SharedWith)
	if len(sharers) == 0 {
		return Allocation{}, fmt.Errorf("%w: must be shared with at least one participant", models.ErrInvalidExpense)
	}

	n := len(sharers)
	share := e.Amount.DivRoundHalfUp(n)

	absorber := sharers[n-1]
	payerShares := false
	for _, p := range sharers {
		if p == e.PaidBy {
			payerShares = true
			absorber = p
			break
		}
	}

	shares := make(map[string]models.Money, n)
	for _, p := range sharers {
		shares[p] = share
	}

	diff := e.Amount - share*models.Money(n)
	step := models.Money(1)
	if diff < 0 {
		step, diff = -1, -diff
	}
	order := make([]string, 0, n)
	order = append(order, absorber)
	for _, p := range sharers {
		if p != absorber {
			order = append(order, p)
		}
	}
	for _, p := range order[:diff] {
		shares[p] += step
	}

	payerNet := e.Amount
	if payerShares {
		payerNet -= shares[e.PaidBy]
	}

	return Allocation{
		Share:    share,
		PayerNet: payerNet,
		Shares:   shares,
		Absorber: absorber,
	}, nil
}
