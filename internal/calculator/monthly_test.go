package calculator

import (
	"reflect"
	"testing"
	"time"

	"github.com/mmynk/housesplit/internal/models"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in      string
		want    Month
		wantErr bool
	}{
		{in: "2024-03", want: Month{Year: 2024, Month: time.March}},
		{in: "1999-12", want: Month{Year: 1999, Month: time.December}},
		{in: "2024-13", wantErr: true},
		{in: "March 2024", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonth(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonth(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMonth(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestMonthWindow(t *testing.T) {
	w := MonthWindow(Month{Year: 2024, Month: time.February}, time.UTC)
	inside := []time.Time{
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 23, 59, 59, 999999999, time.UTC),
	}
	outside := []time.Time{
		time.Date(2024, time.January, 31, 23, 59, 59, 999999999, time.UTC),
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, ts := range inside {
		if !w.Contains(ts) {
			t.Errorf("window should contain %v", ts)
		}
	}
	for _, ts := range outside {
		if w.Contains(ts) {
			t.Errorf("window should not contain %v", ts)
		}
	}
}

func TestAggregateByMonth(t *testing.T) {
	expenses := []models.Expense{
		on(expense("jan-1", 1000, "Alice", "Alice", "Bob"), 2024, time.January, 5),
		on(expense("mar-1", 3000, "Bob", "Alice", "Bob", "Charlie"), 2024, time.March, 2),
		on(expense("jan-2", 800, "Charlie", "Diana"), 2024, time.January, 31),
		on(expense("dec-1", 1200, "Diana", "Alice", "Bob", "Charlie", "Diana"), 2023, time.December, 24),
		on(expense("mar-bad", 500, "Zzz", "Alice"), 2024, time.March, 9),
	}

	months := AggregateByMonth(expenses, household)

	wantOrder := []string{"2024-03", "2024-01", "2023-12"}
	if len(months) != len(wantOrder) {
		t.Fatalf("got %d months, want %d", len(months), len(wantOrder))
	}
	for i, m := range months {
		if m.Month.String() != wantOrder[i] {
			t.Errorf("months[%d] = %s, want %s", i, m.Month, wantOrder[i])
		}
		if len(m.Balances) != len(household) {
			t.Errorf("%s has %d balances, want %d", m.Month, len(m.Balances), len(household))
		}
		if m.NetSum() != 0 {
			t.Errorf("%s balances sum to %s, want 0", m.Month, m.NetSum())
		}

		// Each bucket must equal aggregating the whole set over the month's window.
		w := MonthWindow(m.Month, time.UTC)
		if windowed := Aggregate(expenses, household, &w); !reflect.DeepEqual(windowed, m.Result) {
			t.Errorf("%s bucket differs from windowed aggregate", m.Month)
		}
	}

	jan := months[1]
	if got := jan.Balances["Alice"].NetBalance; got != 500 {
		t.Errorf("January Alice = %s, want 5.00", got)
	}
	if got := jan.Balances["Charlie"].NetBalance; got != 800 {
		t.Errorf("January Charlie = %s, want 8.00", got)
	}
	if got := jan.Balances["Diana"].NetBalance; got != -800 {
		t.Errorf("January Diana = %s, want -8.00", got)
	}

	mar := months[0]
	if len(mar.Skipped) != 1 || mar.Skipped[0].ExpenseID != "mar-bad" {
		t.Errorf("March skipped = %+v, want mar-bad", mar.Skipped)
	}
}

func TestAggregateByMonth_Empty(t *testing.T) {
	if got := AggregateByMonth(nil, household); len(got) != 0 {
		t.Errorf("got %d months, want 0", len(got))
	}
}
