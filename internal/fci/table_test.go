package fci

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fcig/internal/calendar"
	apperrors "fcig/internal/errors"
)

func TestNewTable_Validation(t *testing.T) {
	d := calendar.Date
	tests := []struct {
		name   string
		dates  []time.Time
		names  []string
		values [][]float64
	}{
		{"empty", nil, []string{"A"}, nil},
		{"no variables", []time.Time{d(1980, 1, 2)}, nil, [][]float64{{}}},
		{"row count mismatch", []time.Time{d(1980, 1, 2), d(1980, 1, 3)}, []string{"A"}, [][]float64{{1}}},
		{"width mismatch", []time.Time{d(1980, 1, 2), d(1980, 1, 3)}, []string{"A"}, [][]float64{{1}, {1, 2}}},
		{"duplicate date", []time.Time{d(1980, 1, 2), d(1980, 1, 2)}, []string{"A"}, [][]float64{{1}, {2}}},
		{"decreasing", []time.Time{d(1980, 1, 3), d(1980, 1, 2)}, []string{"A"}, [][]float64{{1}, {2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.dates, tt.names, tt.values)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
		})
	}
}

func TestNewTable_MonthlyNormalization(t *testing.T) {
	dates := firstOfMonthDates(calendar.Date(1980, 1, 1), 4)
	table := mustTable(t, dates, constantValues(4, 7, 1))

	assert.True(t, table.Monthly())
	assert.Equal(t, calendar.Date(1980, 1, 31), table.Date(0))
	assert.Equal(t, calendar.Date(1980, 2, 29), table.Date(1))
	assert.Equal(t, calendar.Date(1980, 1, 1), table.OriginalDate(0))
	assert.Equal(t, calendar.Date(1980, 4, 1), table.OriginalDate(3))
	assert.Equal(t, testVariables, table.Variables())
}

func TestNewTable_DailyKeepsDates(t *testing.T) {
	dates := businessDays(calendar.Date(1980, 1, 2), calendar.Date(1980, 3, 31))
	table := mustTable(t, dates, constantValues(len(dates), 7, 0))

	assert.False(t, table.Monthly())
	for i := range dates {
		assert.Equal(t, dates[i], table.Date(i))
		assert.Equal(t, dates[i], table.OriginalDate(i))
	}
}

func TestTable_ValuesRowMajor(t *testing.T) {
	dates := calendarDays(calendar.Date(1980, 1, 1), calendar.Date(1980, 1, 5))
	table := mustTable(t, dates, indexedValues(len(dates), 7))

	assert.InDeltaSlice(t, []float64{3, 3.1, 3.2, 3.3, 3.4, 3.5, 3.6}, table.Values(3), 1e-12)
	assert.Len(t, table.Values(4), 7)
}

func TestPredecessor_Boundaries(t *testing.T) {
	dates := businessDays(calendar.Date(1980, 1, 2), calendar.Date(1980, 2, 29))
	table := mustTable(t, dates, constantValues(len(dates), 7, 0))

	_, ok := table.Predecessor(calendar.Date(1980, 1, 1))
	assert.False(t, ok, "no row on or before the day preceding the first row")

	row, ok := table.Predecessor(calendar.Date(1980, 1, 2))
	require.True(t, ok)
	assert.Equal(t, 0, row)

	// Saturday resolves to Friday.
	row, ok = table.Predecessor(calendar.Date(1980, 1, 5))
	require.True(t, ok)
	assert.Equal(t, calendar.Date(1980, 1, 4), table.Date(row))

	row, ok = table.Predecessor(calendar.Date(2020, 1, 1))
	require.True(t, ok)
	assert.Equal(t, table.Len()-1, row)
}

func TestPredecessor_MatchesLinearScan(t *testing.T) {
	dates := businessDays(calendar.Date(1980, 1, 2), calendar.Date(1984, 12, 31))
	table := mustTable(t, dates, constantValues(len(dates), 7, 0))

	rng := rand.New(rand.NewSource(7))
	first := calendar.Date(1979, 12, 1)
	for n := 0; n < 2000; n++ {
		target := calendar.AddDays(first, rng.Intn(5*366+60))

		want := -1
		for i := range dates {
			if !dates[i].After(target) {
				want = i
			}
		}

		got, ok := table.Predecessor(target)
		if want < 0 {
			assert.False(t, ok, "target %s", target)
			continue
		}
		require.True(t, ok, "target %s", target)
		assert.Equal(t, want, got, "target %s", target)
	}
}

func TestIsEndOfMonth(t *testing.T) {
	dates := businessDays(calendar.Date(1980, 1, 2), calendar.Date(1980, 3, 28))
	table := mustTable(t, dates, constantValues(len(dates), 7, 0))

	rowOf := func(d time.Time) int {
		r, ok := table.Predecessor(d)
		require.True(t, ok)
		require.Equal(t, d, table.Date(r))
		return r
	}

	assert.True(t, table.IsEndOfMonth(rowOf(calendar.Date(1980, 1, 31))))
	assert.False(t, table.IsEndOfMonth(rowOf(calendar.Date(1980, 1, 30))))
	// Feb 29 1980 is a Friday and the last trading day of the month.
	assert.True(t, table.IsEndOfMonth(rowOf(calendar.Date(1980, 2, 29))))
	// The last row is judged by the following calendar day: Mar 29 is still March.
	assert.False(t, table.IsEndOfMonth(table.Len()-1))

	monthly := mustTable(t, monthEndDates(calendar.Date(1980, 1, 31), 6), constantValues(6, 7, 0))
	for i := 0; i < monthly.Len(); i++ {
		assert.True(t, monthly.IsEndOfMonth(i))
	}
}

func TestFirstOnOrAfter(t *testing.T) {
	dates := businessDays(calendar.Date(1980, 1, 2), calendar.Date(1980, 1, 31))
	table := mustTable(t, dates, constantValues(len(dates), 7, 0))

	assert.Equal(t, 0, table.FirstOnOrAfter(calendar.Date(1979, 6, 1)))
	assert.Equal(t, calendar.Date(1980, 1, 7), table.Date(table.FirstOnOrAfter(calendar.Date(1980, 1, 5))))
	assert.Equal(t, table.Len(), table.FirstOnOrAfter(calendar.Date(1980, 2, 1)))
}
