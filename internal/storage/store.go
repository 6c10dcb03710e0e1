// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"sort"

	"github.com/mmynk/housesplit/internal/models"
)

// Unsubscribe stops a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Store defines the interface for the expense ledger.
// This abstraction allows swapping storage backends (SQLite, bbolt, PostgreSQL)
// without changing the service layer.
type Store interface {
	// CreateExpense persists a new expense.
	// The expense.ID and expense.CreatedAt fields will be populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense by its ID.
	// Returns ErrNotFound if the expense does not exist.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpenses returns every expense, most recent date first.
	ListExpenses(ctx context.Context) ([]models.Expense, error)

	// DeleteExpense removes an expense.
	// Returns ErrNotFound if the expense does not exist.
	DeleteExpense(ctx context.Context, expenseID string) error

	// Subscribe registers onChange to receive the full expense list whenever
	// it changes. The current list is delivered first. Callbacks for one
	// subscriber never overlap; when several changes arrive while a callback
	// runs, only the latest list is delivered next. The subscription ends when
	// the returned Unsubscribe is called or ctx is done.
	Subscribe(ctx context.Context, onChange func([]models.Expense)) (Unsubscribe, error)

	// SetPayoutCard stores or replaces a participant's payout card.
	SetPayoutCard(ctx context.Context, card *models.PayoutCard) error

	// ListPayoutCards returns every stored payout card ordered by person.
	ListPayoutCards(ctx context.Context) ([]models.PayoutCard, error)

	// Close releases any resources held by the store.
	Close() error
}

// SortExpenses orders expenses most recent date first. Ties are broken by
// creation time (newest first) and then by ID.
func SortExpenses(expenses []models.Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		a, b := expenses[i], expenses[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.ID < b.ID
	})
}
