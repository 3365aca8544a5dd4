package fci

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fcig/internal/calendar"
	apperrors "fcig/internal/errors"
)

func newTestEvaluator(t *testing.T, table *Table, weights *Weights, opts Options) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(table, mustCache(t, table), weights, opts)
	require.NoError(t, err)
	return e
}

func TestEvaluate_MonthlyConstantSeries(t *testing.T) {
	const n = 120
	values := constantValues(n, 7, 0)
	for i := range values {
		values[i][0] = 1.0
	}
	table := mustTable(t, monthEndDates(calendar.Date(1980, 1, 31), n), values)
	e := newTestEvaluator(t, table, uniformWeights(t, 7, 0.1), Options{
		Workers:          3,
		PublicationStart: calendar.Date(1970, 1, 1),
	})

	res, err := e.Evaluate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, n-36, res.Evaluated)
	assert.Equal(t, n-36, res.Published)
	require.Equal(t, n-36, res.ThreeYear.Len())
	require.Equal(t, n-36, res.OneYear.Len())
	assert.Equal(t, Monthly, res.ThreeYear.Frequency)
	assert.Equal(t, calendar.Date(1983, 1, 31), res.ThreeYear.Points[0].Date)

	for i, p := range res.ThreeYear.Points {
		assert.InDelta(t, -1.2, p.Value, 1e-12)
		assert.InDelta(t, -1.2, p.Components[0], 1e-12)
		assert.InDelta(t, -0.4, res.OneYear.Points[i].Value, 1e-12)
		assert.Equal(t, p.Date, res.OneYear.Points[i].Date)
	}
}

func TestEvaluate_RestoresOriginalDates(t *testing.T) {
	const n = 48
	table := mustTable(t, firstOfMonthDates(calendar.Date(1980, 1, 1), n), constantValues(n, 7, 1))
	e := newTestEvaluator(t, table, uniformWeights(t, 7, 0.1), Options{PublicationStart: calendar.Date(1900, 1, 1)})

	res, err := e.Evaluate(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, res.ThreeYear.Points)
	assert.Equal(t, calendar.Date(1983, 1, 1), res.ThreeYear.Points[0].Date)
	assert.Equal(t, calendar.Date(1983, 12, 1), res.ThreeYear.Points[len(res.ThreeYear.Points)-1].Date)
}

func TestEvaluate_PublicationStartFilters(t *testing.T) {
	const n = 150
	table := mustTable(t, monthEndDates(calendar.Date(1980, 1, 31), n), constantValues(n, 7, 1))
	e := newTestEvaluator(t, table, uniformWeights(t, 7, 0.1), Options{})

	res, err := e.Evaluate(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, res.ThreeYear.Points)
	assert.Equal(t, calendar.Date(1990, 1, 31), res.ThreeYear.Points[0].Date)
	assert.Equal(t, n-36, res.Evaluated)
	assert.Less(t, res.Published, res.Evaluated)
}

func TestEvaluate_OrderIndependentOfWorkers(t *testing.T) {
	dates := businessDays(calendar.Date(1980, 1, 7), calendar.Date(1986, 12, 31))
	table := mustTable(t, dates, indexedValues(len(dates), 7))
	weights := uniformWeights(t, 7, 0.05)
	opts := Options{PublicationStart: calendar.Date(1980, 1, 1)}

	opts.Workers = 1
	sequential, err := newTestEvaluator(t, table, weights, opts).Evaluate(context.Background())
	require.NoError(t, err)

	opts.Workers = 8
	parallel, err := newTestEvaluator(t, table, weights, opts).Evaluate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sequential.ThreeYear.Points, parallel.ThreeYear.Points)
	assert.Equal(t, sequential.OneYear.Points, parallel.OneYear.Points)
	for i := 1; i < parallel.ThreeYear.Len(); i++ {
		assert.True(t, parallel.ThreeYear.Points[i].Date.After(parallel.ThreeYear.Points[i-1].Date))
	}
}

func TestEvaluationStart_Boundary(t *testing.T) {
	dates := calendarDays(calendar.Date(1980, 1, 2), calendar.Date(1984, 6, 30))
	table := mustTable(t, dates, constantValues(len(dates), 7, 0))
	e := newTestEvaluator(t, table, uniformWeights(t, 7, 0.1), Options{PublicationStart: calendar.Date(1980, 1, 1)})

	first := e.EvaluationStart()
	assert.Equal(t, calendar.Date(1983, 1, 2), table.Date(first))
	assert.Equal(t, calendar.Date(1983, 1, 1), table.Date(first-1))

	res, err := e.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(1983, 1, 2), res.ThreeYear.Points[0].Date)
}

func TestEvaluationStart_MonthEndBoundary(t *testing.T) {
	table := mustTable(t, monthEndDates(calendar.Date(1980, 2, 29), 50), constantValues(50, 7, 0))
	e := newTestEvaluator(t, table, uniformWeights(t, 7, 0.1), Options{})

	assert.Equal(t, calendar.Date(1983, 2, 28), e.EligibleFrom())
	assert.Equal(t, calendar.Date(1983, 2, 28), table.Date(e.EvaluationStart()))
}

func TestEvaluate_NotEnoughHistory(t *testing.T) {
	table := mustTable(t, monthEndDates(calendar.Date(1980, 1, 31), 30), constantValues(30, 7, 0))
	e := newTestEvaluator(t, table, uniformWeights(t, 7, 0.1), Options{})

	_, err := e.Evaluate(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestEvaluate_Cancelled(t *testing.T) {
	table := mustTable(t, monthEndDates(calendar.Date(1980, 1, 31), 60), constantValues(60, 7, 0))
	e := newTestEvaluator(t, table, uniformWeights(t, 7, 0.1), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Evaluate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEvaluator_Mismatch(t *testing.T) {
	table := mustTable(t, monthEndDates(calendar.Date(1980, 1, 31), 40), constantValues(40, 7, 0))
	c := mustCache(t, table)

	_, err := NewEvaluator(table, c, uniformWeights(t, 6, 0.1), Options{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = NewEvaluator(table, newCache(3), uniformWeights(t, 7, 0.1), Options{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCache))

	_, err = NewEvaluator(nil, c, nil, Options{})
	assert.Error(t, err)
}

func TestDecomposeAt(t *testing.T) {
	const n = 60
	values := constantValues(n, 7, 0)
	for i := range values {
		values[i][0] = 1.0
		values[i][6] = 2.0
	}
	table := mustTable(t, firstOfMonthDates(calendar.Date(1980, 1, 1), n), values)
	e := newTestEvaluator(t, table, uniformWeights(t, 7, 0.1), Options{})

	td, err := e.DecomposeAt(calendar.Date(1984, 6, 15))
	require.NoError(t, err)

	assert.Equal(t, calendar.Date(1984, 6, 1), td.Date)
	require.Len(t, td.Lags, WindowSize)
	assert.Equal(t, calendar.Date(1984, 3, 1), td.Lags[1].Date)
	assert.Equal(t, calendar.Date(1981, 6, 1), td.Lags[12].Date)

	var sum3, sum1 float64
	for _, lag := range td.Lags {
		for v := range lag.ThreeYear {
			sum3 += lag.ThreeYear[v]
		}
		for v := range lag.OneYear {
			sum1 += lag.OneYear[v]
		}
	}
	assert.InDelta(t, td.ThreeYear.Value, sum3, 1e-12)
	assert.InDelta(t, td.OneYear.Value, sum1, 1e-12)
	assert.InDelta(t, -3.6, td.ThreeYear.Value, 1e-12)
	assert.InDelta(t, -2.4, td.ThreeYear.Components[6], 1e-12)
	assert.Nil(t, td.Lags[OneYearLags].OneYear)
	assert.Zero(t, td.Lags[Lags].ThreeYear[0], "the farthest anchor carries no weight")
}

func TestDecomposeAt_OutOfRange(t *testing.T) {
	table := mustTable(t, monthEndDates(calendar.Date(1980, 1, 31), 60), constantValues(60, 7, 0))
	e := newTestEvaluator(t, table, uniformWeights(t, 7, 0.1), Options{})

	_, err := e.DecomposeAt(calendar.Date(1979, 1, 1))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	_, err = e.DecomposeAt(calendar.Date(1981, 1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestResult_Series(t *testing.T) {
	r := &Result{ThreeYear: &Series{Horizon: ThreeYear}, OneYear: &Series{Horizon: OneYear}}
	assert.Equal(t, ThreeYear, r.Series(ThreeYear).Horizon)
	assert.Equal(t, OneYear, r.Series(OneYear).Horizon)
}
