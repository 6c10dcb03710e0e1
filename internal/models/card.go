package models

import (
	"fmt"
	"strings"
)

const cardNumberLength = 16

// PayoutCard is the card number a participant wants to be paid back on.
type PayoutCard struct {
	// Person is the roster member owning the card.
	Person string

	// Number is the 16-digit card number. Never returned unmasked by the API.
	Number string

	// UpdatedAt is the Unix timestamp of the last change.
	UpdatedAt int64
}

// NormalizeCardNumber strips everything except digits.
func NormalizeCardNumber(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate checks that the card belongs to a roster member and has exactly 16 digits.
func (c PayoutCard) Validate(roster Roster) error {
	if !roster.Contains(c.Person) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidCard, ErrUnknownParticipant, c.Person)
	}
	if len(c.Number) != cardNumberLength || NormalizeCardNumber(c.Number) != c.Number {
		return fmt.Errorf("%w: card number must be %d digits", ErrInvalidCard, cardNumberLength)
	}
	return nil
}

// Masked renders the card with only the last four digits visible.
func (c PayoutCard) Masked() string {
	if len(c.Number) < 4 {
		return ""
	}
	return "**** **** **** " + c.Number[len(c.Number)-4:]
}
