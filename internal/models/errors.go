package models

import "errors"

var (
	// ErrInvalidExpense is returned when an expense cannot be allocated:
	// non-positive amount, no sharers, or missing required fields.
	ErrInvalidExpense = errors.New("invalid expense")

	// ErrUnknownParticipant is returned when an expense names a payer or
	// sharer outside the configured roster.
	ErrUnknownParticipant = errors.New("unknown participant")

	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidRoster   = errors.New("invalid roster")
	ErrInvalidCard     = errors.New("invalid payout card")
)
