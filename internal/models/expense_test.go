package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testRoster = Roster{"Alice", "Bob", "Charlie", "Diana"}

func validExpense() Expense {
	return Expense{
		Amount:      10000,
		Description: "Groceries run",
		Category:    CategoryGroceries,
		PaidBy:      "Alice",
		Date:        time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		SharedWith:  []string{"Alice", "Bob"},
	}
}

func TestExpenseValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *Expense)
		wantErr error
	}{
		{"valid", func(e *Expense) {}, nil},
		{"zero amount", func(e *Expense) { e.Amount = 0 }, ErrInvalidExpense},
		{"negative amount", func(e *Expense) { e.Amount = -1 }, ErrInvalidExpense},
		{"blank description", func(e *Expense) { e.Description = "  " }, ErrInvalidExpense},
		{"long description", func(e *Expense) { e.Description = strings.Repeat("x", 201) }, ErrInvalidExpense},
		{"bad category", func(e *Expense) { e.Category = "Rent" }, ErrInvalidCategory},
		{"no payer", func(e *Expense) { e.PaidBy = "" }, ErrInvalidExpense},
		{"no sharers", func(e *Expense) { e.SharedWith = nil }, ErrInvalidExpense},
		{"unknown payer", func(e *Expense) { e.PaidBy = "Zzz" }, ErrUnknownParticipant},
		{"unknown sharer", func(e *Expense) { e.SharedWith = []string{"Bob", "Zzz"} }, ErrUnknownParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExpense()
			tt.mutate(&e)
			err := e.ValidateAgainst(testRoster)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	e := Expense{Description: "  Soap ", SharedWith: []string{"Bob", "Alice", "Bob", " "}}
	e.ApplyDefaults(now)

	if !e.Date.Equal(now) {
		t.Errorf("Date = %v, want %v", e.Date, now)
	}
	if e.Description != "Soap" {
		t.Errorf("Description = %q, want %q", e.Description, "Soap")
	}
	if got := strings.Join(e.SharedWith, ","); got != "Alice,Bob" {
		t.Errorf("SharedWith = %q, want Alice,Bob", got)
	}
}

func TestRosterValidate(t *testing.T) {
	if err := testRoster.Validate(); err != nil {
		t.Fatalf("valid roster rejected: %v", err)
	}
	for _, r := range []Roster{nil, {"Alice", ""}, {"Alice", "Alice"}} {
		if err := r.Validate(); !errors.Is(err, ErrInvalidRoster) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidRoster", r, err)
		}
	}
}
