package fci

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fcig/internal/calendar"
)

var testVariables = []string{"TFF", "MORT", "BBB", "SP500", "HPI", "DOLLAR", "VIX"}

// monthEndDates returns n consecutive month-ends starting with first's month.
func monthEndDates(first time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = calendar.EndOfMonth(calendar.AddMonths(calendar.FirstOfMonth(first), i))
	}
	return out
}

// firstOfMonthDates returns n consecutive first-of-month dates.
func firstOfMonthDates(first time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = calendar.AddMonths(calendar.FirstOfMonth(first), i)
	}
	return out
}

// calendarDays returns every day in [from, to].
func calendarDays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = calendar.AddDays(d, 1) {
		out = append(out, d)
	}
	return out
}

// businessDays returns weekdays in [from, to] except Jan 1 and Dec 25.
func businessDays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = calendar.AddDays(d, 1) {
		switch {
		case d.Weekday() == time.Saturday, d.Weekday() == time.Sunday:
			continue
		case d.Month() == time.January && d.Day() == 1:
			continue
		case d.Month() == time.December && d.Day() == 25:
			continue
		}
		out = append(out, d)
	}
	return out
}

func constantValues(n, k int, v float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, k)
		for j := range row {
			row[j] = v
		}
		out[i] = row
	}
	return out
}

// indexedValues makes each row distinguishable: variable j of row i is i + j/10.
func indexedValues(n, k int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, k)
		for j := range row {
			row[j] = float64(i) + float64(j)/10
		}
		out[i] = row
	}
	return out
}

func uniformWeights(t *testing.T, k int, v float64) *Weights {
	t.Helper()
	rows := constantValues(Lags, k, v)
	w, err := WeightsFromRows(rows, nil)
	require.NoError(t, err)
	return w
}

func mustTable(t *testing.T, dates []time.Time, values [][]float64) *Table {
	t.Helper()
	names := testVariables
	if len(values) > 0 && len(values[0]) != len(names) {
		names = make([]string, len(values[0]))
		for i := range names {
			names[i] = "V" + string(rune('A'+i))
		}
	}
	table, err := NewTable(dates, names, values)
	require.NoError(t, err)
	return table
}

func mustCache(t *testing.T, table *Table) *Cache {
	t.Helper()
	c, _, err := BuildCache(table)
	require.NoError(t, err)
	return c
}

// referenceWindow walks the history of dates[i] one linear scan per step,
// with its own month arithmetic, so it shares no date code with the cache.
func referenceWindow(dates []time.Time, i int) ([]int, bool) {
	endOfMonth := refIsEndOfMonth(dates, i)
	slot := 1
	if endOfMonth {
		slot = 8
	}
	dayt := dates[i].Day()
	rows := []int{i}
	row := i
	for k := 0; k < 12; k++ {
		if slot < 1 || slot > 8 {
			return rows, false
		}
		d := dates[row]
		var search time.Time
		if endOfMonth {
			search = refAddMonths(refFirstOfMonth(d), -2).AddDate(0, 0, -1)
		} else {
			shifted := d.AddDate(0, 0, slot-1)
			search = refAddMonths(refFirstOfMonth(shifted).AddDate(0, 0, dayt-1), -3)
			if ((int(d.Month())-int(search.Month()))%12+12)%12 == 2 && dayt > 15 {
				search = refAddMonths(search, -1)
			}
		}

		anchor := -1
		for r, x := range dates {
			if !x.After(search) {
				anchor = r
			}
		}
		if anchor < 0 {
			return rows, false
		}
		rows = append(rows, anchor)
		row = anchor

		slot = dayt - dates[anchor].Day() + 1
		switch {
		case endOfMonth:
			slot = 8
		case slot > 9 || slot < -9:
			slot += 31
		}
	}
	return rows, true
}

func refIsEndOfMonth(dates []time.Time, i int) bool {
	next := dates[i].AddDate(0, 0, 1)
	if i+1 < len(dates) {
		next = dates[i+1]
	}
	return ((int(next.Month())-int(dates[i].Month()))%12+12)%12 == 1
}

func refFirstOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// refAddMonths shifts by n months and clamps the day to the target month.
func refAddMonths(d time.Time, n int) time.Time {
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return time.Date(first.Year(), first.Month(), min(d.Day(), last), 0, 0, 0, 0, time.UTC)
}

// tableDates returns the normalized dates of t.
func tableDates(t *Table) []time.Time {
	out := make([]time.Time, t.Len())
	for i := range out {
		out[i] = t.Date(i)
	}
	return out
}

// gappyBusinessDays drops every eleventh business day on top of weekends.
func gappyBusinessDays(from, to time.Time) []time.Time {
	var out []time.Time
	for k, d := range businessDays(from, to) {
		if k%11 != 5 {
			out = append(out, d)
		}
	}
	return out
}
