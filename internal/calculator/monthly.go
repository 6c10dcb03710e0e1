package calculator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mmynk/housesplit/internal/models"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month t falls in, in t's own location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ErrInvalidMonth is returned by ParseMonth for malformed input.
var ErrInvalidMonth = errors.New("invalid month")

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q, want YYYY-MM: %v", ErrInvalidMonth, s, err)
	}
	return MonthOf(t), nil
}

// String renders the month as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label renders the month for display, e.g. "March 2024".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// MonthWindow returns the inclusive window covering month m in loc.
func MonthWindow(m Month, loc *time.Location) Window {
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	return Window{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// MonthlyResult is the aggregation of one calendar month.
type MonthlyResult struct {
	Month Month
	Result
}

// AggregateByMonth partitions expenses by the calendar month of their date
// and aggregates each partition. Months without expenses are omitted; the
// most recent month comes first.
func AggregateByMonth(expenses []models.Expense, roster models.Roster) []MonthlyResult {
	buckets := make(map[Month][]models.Expense)
	for _, e := range expenses {
		m := MonthOf(e.Date)
		buckets[m] = append(buckets[m], e)
	}

	out := make([]MonthlyResult, 0, len(buckets))
	for m, bucket := range buckets {
		out = append(out, MonthlyResult{Month: m, Result: Aggregate(bucket, roster, nil)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].Month.Before(out[i].Month)
	})
	return out
}
