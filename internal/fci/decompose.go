package fci

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Contribution holds the raw per-variable weighted sums for one date.
// Raw sums are positive for loosening; published values are negated.
type Contribution struct {
	ThreeYear []float64
	OneYear   []float64
}

// Decompose weights a complete window. The 3-year sum covers lags 0..11 and
// the 1-year sum lags 0..3; the last anchor of the window only bounds the
// lookback and carries no weight.
func Decompose(t *Table, w Window, weights *Weights) Contribution {
	k := weights.Variables()
	three := mat.NewVecDense(k, nil)
	one := mat.NewVecDense(k, nil)
	term := mat.NewVecDense(k, nil)

	for lag := 0; lag < Lags; lag++ {
		obs := mat.NewVecDense(k, t.Values(w.Rows[lag]))
		term.MulElemVec(obs, weights.row(lag))
		three.AddVec(three, term)
		if lag < OneYearLags {
			one.AddVec(one, term)
		}
	}

	return Contribution{
		ThreeYear: three.RawVector().Data,
		OneYear:   one.RawVector().Data,
	}
}

// publish flips the sign of raw contributions and returns the components
// with their total, the published index value.
func publish(raw []float64) (components []float64, value float64) {
	components = make([]float64, len(raw))
	copy(components, raw)
	floats.Scale(-1, components)
	return components, floats.Sum(components)
}
