package models

import (
	"fmt"
	"strings"
)

// Category classifies an expense. It is informational only and never
// affects balance math.
type Category string

const (
	CategoryUtilities      Category = "Utilities"
	CategoryGroceries      Category = "Groceries"
	CategoryHouseholdItems Category = "Household Items"
	CategoryMaintenance    Category = "Maintenance"
	CategoryOther          Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryUtilities,
	CategoryGroceries,
	CategoryHouseholdItems,
	CategoryMaintenance,
	CategoryOther,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}
