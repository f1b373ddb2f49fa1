package dateutils

import (
	"fmt"
	"strings"
	"time"
)

// Common date layouts used throughout the application
const (
	LayoutYearMonth = "2006-01"
	LayoutDate      = "2006-01-02"
	LayoutDateTime  = "2006-01-02 15:04:05"
)

// parseLayouts is ordered from most to least specific. Slash dates are read
// month first, the way most billing exporters write them.
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	LayoutDateTime,
	"2006-01-02 15:04",
	LayoutDate,
	"2006/01/02",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"2006-1-2",
	LayoutYearMonth,
	"2006/01",
	"Jan 2006",
	"January 2006",
}

// ParseFlexibleDate parses s with every supported layout and truncates the
// result to a UTC calendar date
func ParseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// DateOnly drops the clock part and moves t to UTC midnight of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthLabel formats t as YYYY-MM
func MonthLabel(t time.Time) string {
	return t.Format(LayoutYearMonth)
}

// MonthStart returns the first day of t's month
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of t's month
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}

// AddMonths shifts the month of t by n, landing on the first day of the month
func AddMonths(t time.Time, n int) time.Time {
	return MonthStart(t).AddDate(0, n, 0)
}

// DaysInclusive counts calendar days from start to end including both ends
func DaysInclusive(start, end time.Time) int {
	return int(DateOnly(end).Sub(DateOnly(start)).Hours()/24) + 1
}

// ParseMonthLabel parses a YYYY-MM label
func ParseMonthLabel(label string) (time.Time, error) {
	t, err := time.Parse(LayoutYearMonth, strings.TrimSpace(label))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month label %q: %w", label, err)
	}
	return t, nil
}

// PreviousMonthLabel returns the label of the month before label
func PreviousMonthLabel(label string) (string, error) {
	t, err := ParseMonthLabel(label)
	if err != nil {
		return "", err
	}
	return MonthLabel(t.AddDate(0, -1, 0)), nil
}
