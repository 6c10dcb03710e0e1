package calculator

import (
	"sort"

	"github.com/mmynk/housesplit/internal/models"
)

// Transfer is one payment that moves balances toward zero.
type Transfer struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount models.Money
}

type party struct {
	name   string
	amount models.Money
}

// Settle turns net balances into a short list of transfers that brings every
// balance to zero.
//
// Algorithm:
// - Split people into debtors (negative balance) and creditors (positive)
// - Sort both by amount descending, ties broken by name
// - Greedy: match the current debtor with the current creditor for the
//   smaller of the two amounts, advance whichever is fully settled
//
// Balances must sum to zero; any residue is left unsettled.
func Settle(balances []models.PersonBalance) []Transfer {
	var debtors, creditors []party
	for _, b := range balances {
		switch {
		case b.NetBalance < 0:
			debtors = append(debtors, party{name: b.Person, amount: -b.NetBalance})
		case b.NetBalance > 0:
			creditors = append(creditors, party{name: b.Person, amount: b.NetBalance})
		}
	}
	byAmount := func(ps []party) {
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].amount != ps[j].amount {
				return ps[i].amount > ps[j].amount
			}
			return ps[i].name < ps[j].name
		})
	}
	byAmount(debtors)
	byAmount(creditors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]

		amount := d.amount
		if c.amount < amount {
			amount = c.amount
		}
		transfers = append(transfers, Transfer{From: d.name, To: c.name, Amount: amount})

		d.amount -= amount
		c.amount -= amount
		if d.amount == 0 {
			i++
		}
		if c.amount == 0 {
			j++
		}
	}
	return transfers
}
