package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Layout identifies the textual format of a date column.
type Layout int

const (
	// LayoutUS is MM/DD/YYYY, single-digit month and day accepted.
	LayoutUS Layout = iota
	// LayoutISO is YYYY-MM-DD with an optional time part.
	LayoutISO
)

func (l Layout) String() string {
	switch l {
	case LayoutUS:
		return "MM/DD/YYYY"
	case LayoutISO:
		return "ISO"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

const day = 24 * time.Hour

var isoLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// DetectLayout picks the layout for a column from one sample value.
func DetectLayout(sample string) Layout {
	if strings.Contains(sample, "/") {
		return LayoutUS
	}
	return LayoutISO
}

// Parse reads s in the given layout and returns the calendar date at UTC midnight.
func Parse(s string, layout Layout) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	switch layout {
	case LayoutUS:
		t, err := time.Parse("1/2/2006", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse %q as %s: %w", s, layout, err)
		}
		return Truncate(t), nil
	case LayoutISO:
		for _, l := range isoLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return Truncate(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("parse %q as %s: unrecognized format", s, layout)
	default:
		return time.Time{}, fmt.Errorf("unknown layout %d", int(layout))
	}
}

// Date is a shorthand for a UTC midnight date.
func Date(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day and location, keeping the calendar date.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// FirstOfMonth returns the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), 1)
}

// EndOfMonth returns the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), DaysIn(t.Year(), t.Month()))
}

// AddDays shifts t by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMonths shifts t by n months, clamping the day to the target month's
// length (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	m := int(t.Month()) - 1 + n
	y := t.Year() + m/12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	month := time.Month(m + 1)
	d := t.Day()
	if last := DaysIn(y, month); d > last {
		d = last
	}
	return Date(y, month, d)
}

// MonthDistance returns (month(a) - month(b)) mod 12 in [0, 11], ignoring years.
func MonthDistance(a, b time.Time) int {
	return ((int(a.Month())-int(b.Month()))%12 + 12) % 12
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)) / day)
}

// IsMonthly reports whether every consecutive gap lies in [28, 31] days.
// A calendar with fewer than two dates is treated as monthly.
func IsMonthly(dates []time.Time) bool {
	for i := 1; i < len(dates); i++ {
		gap := DaysBetween(dates[i-1], dates[i])
		if gap < 28 || gap > 31 {
			return false
		}
	}
	return true
}

// Normalize returns the dates used for computation. Monthly calendars are
// moved to month-end; other calendars are returned unchanged. The input
// slice is never modified.
func Normalize(dates []time.Time) (normalized []time.Time, monthly bool) {
	normalized = make([]time.Time, len(dates))
	monthly = IsMonthly(dates)
	for i, d := range dates {
		if monthly {
			normalized[i] = EndOfMonth(d)
		} else {
			normalized[i] = Truncate(d)
		}
	}
	return normalized, monthly
}

// Quarter identifies a calendar quarter.
type Quarter struct {
	Year int
	Q    int
}

// QuarterOf returns the calendar quarter containing t.
func QuarterOf(t time.Time) Quarter {
	return Quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

func (q Quarter) String() string {
	return fmt.Sprintf("%dQ%d", q.Year, q.Q)
}
