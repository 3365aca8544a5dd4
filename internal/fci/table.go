package fci

import (
	"fmt"
	"sort"
	"time"

	"fcig/internal/calendar"
	apperrors "fcig/internal/errors"
)

const (
	// Lags is the number of quarterly lags weighted into the 3-year index.
	Lags = 12
	// OneYearLags is the number of lags weighted into the 1-year index.
	OneYearLags = 4
	// WindowSize is the current row plus one anchor per three-month step.
	WindowSize = Lags + 1
	// LookbackMonths is the history a row needs before it can be evaluated.
	LookbackMonths = 36
	// ChainFloorMonths bounds where cache chains may start.
	ChainFloorMonths = 3
	// DefaultVariables is the usual width of an observation row.
	DefaultVariables = 7
)

// Table is the normalized, strictly date-ordered observation sequence.
type Table struct {
	dates    []time.Time
	original []time.Time
	monthly  bool
	names    []string
	values   []float64 // row-major, len(dates) * len(names)
}

// NewTable normalizes dates and validates the calendar and value shape.
// values[i] holds the variables for dates[i] in the order given by names.
func NewTable(dates []time.Time, names []string, values [][]float64) (*Table, error) {
	if len(dates) == 0 {
		return nil, apperrors.NewAppValidationError("observation table is empty")
	}
	if len(names) == 0 {
		return nil, apperrors.NewAppValidationError("observation table has no variables")
	}
	if len(values) != len(dates) {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("got %d value rows for %d dates", len(values), len(dates)))
	}

	normalized, monthly := calendar.Normalize(dates)
	for i := 1; i < len(normalized); i++ {
		if !normalized[i].After(normalized[i-1]) {
			return nil, apperrors.NewAppValidationError("calendar is not strictly increasing").
				WithContext("row", i).
				WithContext("date", normalized[i].Format(time.DateOnly)).
				WithContext("previous", normalized[i-1].Format(time.DateOnly))
		}
	}

	k := len(names)
	flat := make([]float64, 0, len(values)*k)
	for i, row := range values {
		if len(row) != k {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("row %d has %d values, want %d", i, len(row), k))
		}
		flat = append(flat, row...)
	}

	original := make([]time.Time, len(dates))
	for i, d := range dates {
		original[i] = calendar.Truncate(d)
	}

	return &Table{
		dates:    normalized,
		original: original,
		monthly:  monthly,
		names:    append([]string(nil), names...),
		values:   flat,
	}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.dates) }

// Date returns the normalized date of row i.
func (t *Table) Date(i int) time.Time { return t.dates[i] }

// OriginalDate returns the date of row i as it appeared in the input.
func (t *Table) OriginalDate(i int) time.Time { return t.original[i] }

// Monthly reports whether the calendar was detected as monthly and moved to month-end.
func (t *Table) Monthly() bool { return t.monthly }

// Earliest returns the first normalized date.
func (t *Table) Earliest() time.Time { return t.dates[0] }

// Variables returns the variable names in column order.
func (t *Table) Variables() []string { return t.names }

// Values returns row i's variables. The slice aliases table storage and must not be modified.
func (t *Table) Values(i int) []float64 {
	k := len(t.names)
	return t.values[i*k : (i+1)*k : (i+1)*k]
}

// Predecessor returns the row with the latest date not after target.
// ok is false when every row is dated after target.
func (t *Table) Predecessor(target time.Time) (row int, ok bool) {
	row = sort.Search(len(t.dates), func(i int) bool {
		return t.dates[i].After(target)
	}) - 1
	return row, row >= 0
}

// OriginalPredecessor is Predecessor over the input calendar.
func (t *Table) OriginalPredecessor(target time.Time) (row int, ok bool) {
	row = sort.Search(len(t.original), func(i int) bool {
		return t.original[i].After(target)
	}) - 1
	return row, row >= 0
}

// FirstOnOrAfter returns the first row dated at or after target, or Len() if none.
func (t *Table) FirstOnOrAfter(target time.Time) int {
	return sort.Search(len(t.dates), func(i int) bool {
		return !t.dates[i].Before(target)
	})
}

// IsEndOfMonth reports whether row i closes its month: the next row's date
// (or the day after, for the last row) falls in the following month.
func (t *Table) IsEndOfMonth(i int) bool {
	cur := t.dates[i]
	var next time.Time
	if i+1 < len(t.dates) {
		next = t.dates[i+1]
	} else {
		next = calendar.AddDays(cur, 1)
	}
	return calendar.MonthDistance(next, cur) == 1
}
