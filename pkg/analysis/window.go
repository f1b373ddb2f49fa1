package analysis

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"costlens/pkg/dataset"
	"costlens/pkg/utils/dateutils"
)

// ComputeDateWindow resolves a period key against the available dates.
//
//	30d     the 30 days ending at the latest date
//	3m, 6m  whole calendar months ending with the latest date's month
//	custom  the given range, swapped when reversed
//
// An empty key means 3m.
func ComputeDateWindow(period string, dates []time.Time, custom *dataset.DateRange) (*DateWindow, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		period = DefaultPeriod
	}

	if period == PeriodCustom {
		if custom == nil || custom.Start == nil || custom.End == nil {
			return nil, ErrInvalidDateRange
		}
		start, end := dateutils.DateOnly(*custom.Start), dateutils.DateOnly(*custom.End)
		if start.After(end) {
			start, end = end, start
		}
		return newWindow(start, end), nil
	}

	if len(dates) == 0 {
		return nil, wrapError(ErrNoDataFound, "no dates to anchor period %s", period)
	}
	anchor := dateutils.DateOnly(lo.MaxBy(dates, func(a, b time.Time) bool { return a.After(b) }))

	switch period {
	case Period30Days:
		return newWindow(anchor.AddDate(0, 0, -29), anchor), nil
	case Period3Months:
		return calendarWindow(anchor, 3), nil
	case Period6Months:
		return calendarWindow(anchor, 6), nil
	}
	return nil, wrapError(ErrInvalidPeriod, "unknown period %q, expected one of 30d, 3m, 6m, custom", period)
}

func calendarWindow(anchor time.Time, months int) *DateWindow {
	start := dateutils.AddMonths(anchor, -(months - 1))
	return newWindow(start, dateutils.MonthEnd(anchor))
}

func newWindow(start, end time.Time) *DateWindow {
	return &DateWindow{Start: start, End: end, Days: dateutils.DaysInclusive(start, end)}
}

// Range converts the window to a dataset filter range
func (w *DateWindow) Range() dataset.DateRange {
	if w == nil {
		return dataset.DateRange{}
	}
	start, end := w.Start, w.End
	return dataset.DateRange{Start: &start, End: &end}
}
