package models

import (
	"errors"
	"testing"
)

func TestPayoutCard(t *testing.T) {
	card := PayoutCard{Person: "Bob", Number: NormalizeCardNumber("4169 7388 1234 5678")}
	if err := card.Validate(testRoster); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := card.Masked(); got != "**** **** **** 5678" {
		t.Errorf("Masked() = %q", got)
	}

	short := PayoutCard{Person: "Bob", Number: "1234"}
	if err := short.Validate(testRoster); !errors.Is(err, ErrInvalidCard) {
		t.Errorf("short card: got %v, want ErrInvalidCard", err)
	}

	stranger := PayoutCard{Person: "Zzz", Number: "4169738812345678"}
	if err := stranger.Validate(testRoster); !errors.Is(err, ErrUnknownParticipant) {
		t.Errorf("stranger card: got %v, want ErrUnknownParticipant", err)
	}
}
