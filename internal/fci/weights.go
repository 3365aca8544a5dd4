package fci

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	apperrors "fcig/internal/errors"
)

// Weights is the immutable Lags x K lag-weight matrix. Row k weights the
// anchor k quarters back; row 0 weights the current observation.
type Weights struct {
	m     *mat.Dense
	names []string
}

// NewWeights validates the matrix shape and copies it.
// names may be nil; when given it must have one entry per column.
func NewWeights(m mat.Matrix, names []string) (*Weights, error) {
	if m == nil {
		return nil, apperrors.NewAppValidationError("weight matrix is nil")
	}
	r, c := m.Dims()
	if r != Lags {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("weight matrix has %d rows, want %d", r, Lags))
	}
	if c == 0 {
		return nil, apperrors.NewAppValidationError("weight matrix has no columns")
	}
	if names != nil && len(names) != c {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("weight matrix has %d columns but %d names", c, len(names)))
	}
	return &Weights{
		m:     mat.DenseCopyOf(m),
		names: append([]string(nil), names...),
	}, nil
}

// WeightsFromRows builds Weights from row slices.
func WeightsFromRows(rows [][]float64, names []string) (*Weights, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, apperrors.NewAppValidationError("weight matrix is empty")
	}
	c := len(rows[0])
	data := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("weight row %d has %d columns, want %d", i, len(row), c))
		}
		data = append(data, row...)
	}
	return NewWeights(mat.NewDense(len(rows), c, data), names)
}

// Variables returns the number of columns.
func (w *Weights) Variables() int {
	_, c := w.m.Dims()
	return c
}

// Names returns the column names, or nil if none were given.
func (w *Weights) Names() []string { return w.names }

// At returns the weight of variable v at lag k.
func (w *Weights) At(k, v int) float64 { return w.m.At(k, v) }

func (w *Weights) row(k int) mat.Vector { return w.m.RowView(k) }
