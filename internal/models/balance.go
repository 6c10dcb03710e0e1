package models

import "time"

// LineItem is one expense's contribution to a person's balance.
type LineItem struct {
	ExpenseID   string
	Description string
	Date        time.Time
	// Amount is this person's share of the expense.
	Amount Money
	PaidBy string
}

// PersonBalance is the derived balance of one roster member over a window.
// It is never persisted; it is recomputed from the expense set every time.
type PersonBalance struct {
	Person string

	// NetBalance is positive when the person is owed money and negative
	// when the person owes money.
	NetBalance Money

	// Items are the expenses this person shares, with their share amounts.
	Items []LineItem
}

// Settled reports whether the person neither owes nor is owed.
func (b PersonBalance) Settled() bool {
	return b.NetBalance == 0
}

// SkippedRecord describes an expense left out of an aggregation.
type SkippedRecord struct {
	ExpenseID   string
	Description string
	Reason      string
}
