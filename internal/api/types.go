package api

import (
	"time"

	"github.com/mmynk/housesplit/internal/models"
)

// Expense is the wire form of models.Expense.
type Expense struct {
	ID          string       `json:"id,omitempty"`
	Amount      models.Money `json:"amount"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	PaidBy      string       `json:"paidBy"`
	// Date may be omitted on create, in which case the creation time is used.
	Date       time.Time `json:"date,omitzero"`
	SharedWith []string  `json:"sharedWith"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  int64     `json:"createdAt,omitempty"`
}

// LineItem is one expense's contribution to a person's balance.
type LineItem struct {
	ExpenseID   string       `json:"expenseId"`
	Description string       `json:"description"`
	Date        time.Time    `json:"date"`
	Amount      models.Money `json:"amount"`
	PaidBy      string       `json:"paidBy"`
}

// PersonBalance is a person's net balance and the items behind it.
type PersonBalance struct {
	Person     string       `json:"person"`
	NetBalance models.Money `json:"netBalance"`
	Items      []LineItem   `json:"items"`
}

// SkippedRecord is an expense left out of a computation.
type SkippedRecord struct {
	ExpenseID   string `json:"expenseId"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// Window is an inclusive date range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MonthlyBalances are the balances of one calendar month.
type MonthlyBalances struct {
	Month    string          `json:"month"`
	Label    string          `json:"label"`
	Count    int             `json:"count"`
	Total    models.Money    `json:"total"`
	Balances []PersonBalance `json:"balances"`
	Skipped  []SkippedRecord `json:"skipped,omitempty"`
}

// PersonalSummary splits a balance into paid and consumed totals.
type PersonalSummary struct {
	Person  string       `json:"person"`
	Paid    models.Money `json:"paid"`
	Share   models.Money `json:"share"`
	Balance models.Money `json:"balance"`
	Items   []LineItem   `json:"items"`
}

// Transfer is one suggested payment. PayTo is the recipient's masked payout
// card when one is on file.
type Transfer struct {
	From   string       `json:"from"`
	To     string       `json:"to"`
	Amount models.Money `json:"amount"`
	PayTo  string       `json:"payTo,omitempty"`
}

// PayoutCard is a payout card with its number masked.
type PayoutCard struct {
	Person    string `json:"person"`
	Masked    string `json:"masked"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ExpenseService messages.
type (
	CreateExpenseRequest struct {
		Expense Expense `json:"expense"`
	}
	CreateExpenseResponse struct {
		Expense Expense `json:"expense"`
	}

	GetExpenseRequest struct {
		ID string `json:"id"`
	}
	GetExpenseResponse struct {
		Expense Expense `json:"expense"`
	}

	// ListExpensesRequest optionally restricts the list to one "YYYY-MM" month.
	ListExpensesRequest struct {
		Month string `json:"month,omitempty"`
	}
	ListExpensesResponse struct {
		Expenses []Expense `json:"expenses"`
	}

	// DeleteExpenseRequest carries the delete secret unless the request has
	// a capability in its Authorization header.
	DeleteExpenseRequest struct {
		ID     string `json:"id"`
		Secret string `json:"secret,omitempty"`
	}
	DeleteExpenseResponse struct{}

	UnlockDeleteRequest struct {
		Secret string `json:"secret"`
	}
	UnlockDeleteResponse struct {
		Capability string    `json:"capability"`
		ExpiresAt  time.Time `json:"expiresAt"`
	}

	ListCategoriesRequest  struct{}
	ListCategoriesResponse struct {
		Categories []string `json:"categories"`
	}

	AllocateRequest struct {
		Expense Expense `json:"expense"`
	}
	AllocateResponse struct {
		Share    models.Money            `json:"share"`
		PayerNet models.Money            `json:"payerNet"`
		Shares   map[string]models.Money `json:"shares"`
		Absorber string                  `json:"absorber"`
	}
)

// BalanceService messages.
type (
	GetBalancesRequest struct {
		Window *Window `json:"window,omitempty"`
	}
	GetBalancesResponse struct {
		Balances   []PersonBalance `json:"balances"`
		Skipped    []SkippedRecord `json:"skipped,omitempty"`
		Generation uint64          `json:"generation"`
	}

	GetMonthlyBalancesRequest  struct{}
	GetMonthlyBalancesResponse struct {
		Months []MonthlyBalances `json:"months"`
	}

	// GetPersonalSummaryRequest optionally narrows to one person and/or month.
	GetPersonalSummaryRequest struct {
		Person string `json:"person,omitempty"`
		Month  string `json:"month,omitempty"`
	}
	GetPersonalSummaryResponse struct {
		Summaries []PersonalSummary `json:"summaries"`
	}

	GetDashboardStatsRequest  struct{}
	GetDashboardStatsResponse struct {
		Count        int                     `json:"count"`
		Total        models.Money            `json:"total"`
		ThisMonth    models.Money            `json:"thisMonth"`
		AverageShare models.Money            `json:"averageShare"`
		PaidBy       map[string]models.Money `json:"paidBy"`
	}

	GetSettlementsRequest struct {
		Month string `json:"month,omitempty"`
	}
	GetSettlementsResponse struct {
		Transfers []Transfer `json:"transfers"`
	}
)

// RosterService messages.
type (
	GetRosterRequest  struct{}
	GetRosterResponse struct {
		Members []string `json:"members"`
	}

	SetPayoutCardRequest struct {
		Person string `json:"person"`
		Number string `json:"number"`
	}
	SetPayoutCardResponse struct {
		Card PayoutCard `json:"card"`
	}

	ListPayoutCardsRequest  struct{}
	ListPayoutCardsResponse struct {
		Cards []PayoutCard `json:"cards"`
	}
)
