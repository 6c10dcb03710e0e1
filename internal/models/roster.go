package models

import (
	"fmt"
	"strings"
)

// Roster is the ordered, closed set of household members for one deployment.
type Roster []string

// Contains reports whether person is a roster member.
func (r Roster) Contains(person string) bool {
	for _, member := range r {
		if member == person {
			return true
		}
	}
	return false
}

// Validate checks that the roster is non-empty and has no blank or duplicate names.
func (r Roster) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("%w: no members", ErrInvalidRoster)
	}
	seen := make(map[string]bool, len(r))
	for _, member := range r {
		if strings.TrimSpace(member) == "" {
			return fmt.Errorf("%w: blank member name", ErrInvalidRoster)
		}
		if seen[member] {
			return fmt.Errorf("%w: duplicate member %q", ErrInvalidRoster, member)
		}
		seen[member] = true
	}
	return nil
}
