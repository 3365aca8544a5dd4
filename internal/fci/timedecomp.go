package fci

import (
	"errors"
	"fmt"
	"time"

	apperrors "fcig/internal/errors"
)

// ErrInsufficientHistory means the requested date precedes the evaluation range.
var ErrInsufficientHistory = errors.New("insufficient history")

// LagContribution is the published weighted contribution of one anchor.
type LagContribution struct {
	Lag          int       `json:"lag"`
	Date         time.Time `json:"date"`
	Observations []float64 `json:"observations"`
	ThreeYear    []float64 `json:"three_year"`
	OneYear      []float64 `json:"one_year,omitempty"`
}

// TimeDecomposition breaks one date's index into per-lag contributions.
type TimeDecomposition struct {
	Date      time.Time         `json:"date"`
	Variables []string          `json:"variables"`
	Lags      []LagContribution `json:"lags"`
	ThreeYear Point             `json:"three_year"`
	OneYear   Point             `json:"one_year"`
}

// DecomposeAt returns the time decomposition for the last row dated on or
// before date on the input calendar.
func (e *Evaluator) DecomposeAt(date time.Time) (*TimeDecomposition, error) {
	row, ok := e.table.OriginalPredecessor(date)
	if !ok {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("observation on or before %s", date.Format(time.DateOnly)))
	}
	if row < e.EvaluationStart() {
		return nil, apperrors.NewAppError(apperrors.ErrTypeNotFound,
			fmt.Sprintf("%s is before the first evaluable date %s",
				e.table.OriginalDate(row).Format(time.DateOnly),
				e.EligibleFrom().Format(time.DateOnly)),
			ErrInsufficientHistory)
	}

	w, err := e.cache.Walk(e.table, row)
	if err != nil {
		return nil, err
	}

	k := e.weights.Variables()
	td := &TimeDecomposition{
		Date:      e.table.OriginalDate(row),
		Variables: e.table.Variables(),
		Lags:      make([]LagContribution, 0, WindowSize),
	}
	for lag := 0; lag < WindowSize; lag++ {
		r := w.Rows[lag]
		obs := append([]float64(nil), e.table.Values(r)...)
		lc := LagContribution{
			Lag:          lag,
			Date:         e.table.OriginalDate(r),
			Observations: obs,
			ThreeYear:    make([]float64, k),
		}
		if lag < Lags {
			for v := 0; v < k; v++ {
				lc.ThreeYear[v] = -obs[v] * e.weights.At(lag, v)
			}
		}
		if lag < OneYearLags {
			lc.OneYear = append([]float64(nil), lc.ThreeYear...)
		}
		td.Lags = append(td.Lags, lc)
	}

	c := Decompose(e.table, w, e.weights)
	comps, val := publish(c.ThreeYear)
	td.ThreeYear = Point{Date: td.Date, Value: val, Components: comps}
	comps, val = publish(c.OneYear)
	td.OneYear = Point{Date: td.Date, Value: val, Components: comps}
	return td, nil
}
