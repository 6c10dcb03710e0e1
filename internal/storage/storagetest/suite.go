// Package storagetest holds the behavior every storage.Store backend must share.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
)

// NewExpense returns a valid expense dated on the given day.
func NewExpense(description string, amount models.Money, payer string, day time.Time, sharers ...string) *models.Expense {
	return &models.Expense{
		Amount:      amount,
		Description: description,
		Category:    models.CategoryGroceries,
		PaidBy:      payer,
		Date:        day,
		SharedWith:  sharers,
	}
}

// Run exercises store against the storage.Store contract. newStore must
// return an empty store; Run closes it.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()
	loc := time.FixedZone("CET", 3600)

	t.Run("CreateExpense assigns ID and CreatedAt", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		e := NewExpense("Milk", 250, "Alice", time.Date(2024, 3, 1, 10, 0, 0, 0, loc), "Alice", "Bob")
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if e.ID == "" {
			t.Error("Expected expense ID to be generated")
		}
		if e.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("GetExpense retrieves complete expense", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		original := NewExpense("Electricity", 12345, "Bob", time.Date(2024, 1, 31, 23, 30, 0, 0, loc), "Charlie", "Alice", "Bob")
		original.Category = models.CategoryUtilities
		original.Image = "data:image/png;base64,AAAA"
		if err := store.CreateExpense(ctx, original); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		got, err := store.GetExpense(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.ID != original.ID || got.Amount != original.Amount || got.Description != original.Description {
			t.Errorf("GetExpense = %+v, want %+v", got, original)
		}
		if got.Category != models.CategoryUtilities || got.PaidBy != "Bob" || got.Image != original.Image {
			t.Errorf("GetExpense = %+v, want %+v", got, original)
		}
		if !got.Date.Equal(original.Date) {
			t.Errorf("Date = %v, want %v", got.Date, original.Date)
		}
		if got.Date.Month() != time.January {
			t.Errorf("Date month = %v, want January in the original offset", got.Date.Month())
		}
		if got.CreatedAt != original.CreatedAt {
			t.Errorf("CreatedAt = %d, want %d", got.CreatedAt, original.CreatedAt)
		}
		want := []string{"Alice", "Bob", "Charlie"}
		if len(got.SharedWith) != len(want) {
			t.Fatalf("SharedWith = %v, want %v", got.SharedWith, want)
		}
		for i := range want {
			if got.SharedWith[i] != want[i] {
				t.Errorf("SharedWith = %v, want %v", got.SharedWith, want)
				break
			}
		}
	})

	t.Run("GetExpense unknown ID", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		_, err := store.GetExpense(ctx, "00000000-0000-0000-0000-000000000000")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetExpense error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListExpenses newest date first", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		days := []int{5, 20, 1, 12}
		for _, d := range days {
			e := NewExpense("Bread", 300, "Alice", time.Date(2024, 2, d, 8, 0, 0, 0, loc), "Alice", "Diana")
			if err := store.CreateExpense(ctx, e); err != nil {
				t.Fatalf("CreateExpense failed: %v", err)
			}
		}

		list, err := store.ListExpenses(ctx)
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		wantDays := []int{20, 12, 5, 1}
		if len(list) != len(wantDays) {
			t.Fatalf("ListExpenses returned %d expenses, want %d", len(list), len(wantDays))
		}
		for i, d := range wantDays {
			if list[i].Date.Day() != d {
				t.Errorf("list[%d] day = %d, want %d", i, list[i].Date.Day(), d)
			}
			if len(list[i].SharedWith) != 2 {
				t.Errorf("list[%d] SharedWith = %v, want 2 sharers", i, list[i].SharedWith)
			}
		}
	})

	t.Run("DeleteExpense removes expense", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		e := NewExpense("Soap", 499, "Charlie", time.Date(2024, 4, 2, 8, 0, 0, 0, loc), "Charlie")
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if err := store.DeleteExpense(ctx, e.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if _, err := store.GetExpense(ctx, e.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetExpense after delete error = %v, want ErrNotFound", err)
		}
		if err := store.DeleteExpense(ctx, e.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second DeleteExpense error = %v, want ErrNotFound", err)
		}
		list, err := store.ListExpenses(ctx)
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("ListExpenses returned %d expenses after delete, want 0", len(list))
		}
	})

	t.Run("Subscribe sees every write", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		sizes := make(chan int, 16)
		unsub, err := store.Subscribe(ctx, func(list []models.Expense) { sizes <- len(list) })
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer unsub()

		waitFor(t, sizes, 0)

		e := NewExpense("Rent", 100000, "Diana", time.Date(2024, 5, 1, 0, 0, 0, 0, loc), "Alice", "Bob", "Charlie", "Diana")
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		waitFor(t, sizes, 1)

		if err := store.DeleteExpense(ctx, e.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		waitFor(t, sizes, 0)
	})

	t.Run("Payout cards", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		cards := []*models.PayoutCard{
			{Person: "Bob", Number: "4111111111111111"},
			{Person: "Alice", Number: "5500000000000004"},
			{Person: "Bob", Number: "4000000000000002"},
		}
		for _, c := range cards {
			if err := store.SetPayoutCard(ctx, c); err != nil {
				t.Fatalf("SetPayoutCard failed: %v", err)
			}
			if c.UpdatedAt == 0 {
				t.Error("Expected UpdatedAt to be set")
			}
		}

		list, err := store.ListPayoutCards(ctx)
		if err != nil {
			t.Fatalf("ListPayoutCards failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("ListPayoutCards returned %d cards, want 2", len(list))
		}
		if list[0].Person != "Alice" || list[1].Person != "Bob" {
			t.Errorf("cards not ordered by person: %+v", list)
		}
		if list[1].Number != "4000000000000002" {
			t.Errorf("Bob's card = %s, want the replacement", list[1].Number)
		}
	})
}

// waitFor drains sizes until it sees want. Intermediate sizes may appear
// because deliveries coalesce.
func waitFor(t *testing.T, sizes <-chan int, want int) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case n := <-sizes:
			if n == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for a snapshot of %d expenses", want)
		}
	}
}
