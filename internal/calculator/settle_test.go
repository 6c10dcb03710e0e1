package calculator

import (
	"reflect"
	"testing"

	"github.com/mmynk/housesplit/internal/models"
)

func balancesOf(nets map[string]models.Money) []models.PersonBalance {
	var out []models.PersonBalance
	for _, person := range household {
		out = append(out, models.PersonBalance{Person: person, NetBalance: nets[person]})
	}
	return out
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name string
		nets map[string]models.Money
		want []Transfer
	}{
		{
			name: "one creditor",
			nets: map[string]models.Money{"Alice": 7500, "Bob": -2500, "Charlie": -2500, "Diana": -2500},
			want: []Transfer{
				{From: "Bob", To: "Alice", Amount: 2500},
				{From: "Charlie", To: "Alice", Amount: 2500},
				{From: "Diana", To: "Alice", Amount: 2500},
			},
		},
		{
			name: "debtor split across creditors",
			nets: map[string]models.Money{"Alice": 300, "Bob": 200, "Charlie": -500},
			want: []Transfer{
				{From: "Charlie", To: "Alice", Amount: 300},
				{From: "Charlie", To: "Bob", Amount: 200},
			},
		},
		{
			name: "all settled",
			nets: map[string]models.Money{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Settle(balancesOf(tt.nets))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Settle() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSettle_ClearsAggregate(t *testing.T) {
	expenses := []models.Expense{
		expense("e1", 10000, "Bob", "Alice", "Bob", "Charlie"),
		expense("e2", 4321, "Diana", "Alice", "Diana"),
		expense("e3", 999, "Alice", "Bob", "Charlie", "Diana"),
	}
	res := Aggregate(expenses, household, nil)
	transfers := Settle(res.Ordered(household))

	remaining := make(map[string]models.Money)
	for person, b := range res.Balances {
		remaining[person] = b.NetBalance
	}
	for _, tr := range transfers {
		if tr.Amount <= 0 {
			t.Errorf("non-positive transfer %+v", tr)
		}
		remaining[tr.From] += tr.Amount
		remaining[tr.To] -= tr.Amount
	}
	for person, left := range remaining {
		if left != 0 {
			t.Errorf("%s left with %s after settling", person, left)
		}
	}
}
