package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// maxDescriptionLength bounds the free-text label of an expense.
const maxDescriptionLength = 200

// Expense is one shared household expense.
// Expenses are immutable once persisted: they are created and deleted, never updated.
type Expense struct {
	// ID is the unique identifier assigned by the ledger store (UUID format).
	// Empty until the expense is first persisted.
	ID string

	// Amount is the total fronted by the payer. Must be positive.
	Amount Money

	// Description is the free-text label shown in lists (e.g., "Electricity bill").
	Description string

	// Category is informational only.
	Category Category

	// PaidBy is the roster member who fronted the money.
	PaidBy string

	// Date is when the expense happened. A zero Date is replaced by the
	// creation time in ApplyDefaults.
	Date time.Time

	// SharedWith is the set of roster members who consume a share of the expense.
	// The payer is included only if the payer also consumes a share.
	SharedWith []string

	// Image is an opaque receipt reference (e.g. a data URL). Never interpreted.
	Image string

	// CreatedAt is the Unix timestamp when the store persisted the expense.
	CreatedAt int64
}

// ApplyDefaults fills in write-time defaults: Date falls back to now and
// SharedWith is reduced to a sorted set.
func (e *Expense) ApplyDefaults(now time.Time) {
	if e.Date.IsZero() {
		e.Date = now
	}
	e.Description = strings.TrimSpace(e.Description)
	e.SharedWith = UniqueSorted(e.SharedWith)
}

// Validate checks the intrinsic fields of the expense.
// All failures wrap ErrInvalidExpense.
func (e Expense) Validate() error {
	if e.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidExpense, e.Amount)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidExpense)
	}
	if len(e.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidExpense, maxDescriptionLength)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidExpense, ErrInvalidCategory, e.Category)
	}
	if strings.TrimSpace(e.PaidBy) == "" {
		return fmt.Errorf("%w: payer is required", ErrInvalidExpense)
	}
	if len(e.SharedWith) == 0 {
		return fmt.Errorf("%w: must be shared with at least one participant", ErrInvalidExpense)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidExpense)
	}
	return nil
}

// ValidateAgainst runs Validate and then checks that the payer and every
// sharer belong to roster. Membership failures wrap ErrUnknownParticipant.
func (e Expense) ValidateAgainst(roster Roster) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := e.CheckParticipants(roster); err != nil {
		return err
	}
	return nil
}

// CheckParticipants reports the first payer or sharer missing from roster.
func (e Expense) CheckParticipants(roster Roster) error {
	if !roster.Contains(e.PaidBy) {
		return fmt.Errorf("%w: payer %q", ErrUnknownParticipant, e.PaidBy)
	}
	for _, p := range e.SharedWith {
		if !roster.Contains(p) {
			return fmt.Errorf("%w: sharer %q", ErrUnknownParticipant, p)
		}
	}
	return nil
}

// SharedByPayer reports whether the payer also consumes a share.
func (e Expense) SharedByPayer() bool {
	for _, p := range e.SharedWith {
		if p == e.PaidBy {
			return true
		}
	}
	return false
}

// UniqueSorted returns the distinct non-blank names in ids, sorted.
func UniqueSorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
