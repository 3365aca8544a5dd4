package dataio

import (
	"fmt"
	"log/slog"
	"strings"

	"fcig/internal/fci"
	apperrors "fcig/internal/errors"
)

// LoadWeights reads the lag-weight matrix. The first row names the variables
// after a label cell, and each following row holds one lag after its label.
// Exactly twelve lag rows are accepted; blank rows are skipped.
func LoadWeights(path, sheet string) (*fci.Weights, error) {
	grid, err := readGrid(path, sheet)
	if err != nil {
		return nil, err
	}
	return ParseWeights(grid)
}

// ParseWeights builds weights from a grid of cells.
func ParseWeights(grid [][]string) (*fci.Weights, error) {
	if len(grid) == 0 {
		return nil, apperrors.NewAppValidationError("weights file is empty")
	}
	header := grid[0]
	if len(header) < 2 {
		return nil, apperrors.NewAppValidationError("weights header needs a label column and at least one variable")
	}
	names := trimAll(header[1:])

	rows := make([][]float64, 0, fci.Lags)
	for r, record := range grid[1:] {
		line := r + 2
		if blankRow(record) {
			continue
		}
		if len(rows) == fci.Lags {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("weights file has more than %d lag rows", fci.Lags)).
				WithContext("line", line)
		}
		row := make([]float64, len(names))
		for v := range names {
			cell := cellAt(record, v+1)
			if isNA(cell) {
				return nil, apperrors.NewAppValidationError("missing weight").
					WithContext("line", line).
					WithContext("column", names[v])
			}
			w, err := parseFloat(cell, names[v], line)
			if err != nil {
				return nil, err
			}
			row[v] = w
		}
		rows = append(rows, row)
	}

	if len(rows) < fci.Lags {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("weights file has %d lag rows, want %d", len(rows), fci.Lags))
	}
	return fci.WeightsFromRows(rows, names)
}

// CheckNames logs a warning when the weight columns are labelled differently
// from the input variables. Columns are matched by position either way.
func CheckNames(logger *slog.Logger, weights *fci.Weights, variables []string) {
	names := weights.Names()
	if len(names) != len(variables) {
		return
	}
	var mismatched []string
	for i := range names {
		if !strings.EqualFold(names[i], variables[i]) {
			mismatched = append(mismatched, fmt.Sprintf("%s/%s", variables[i], names[i]))
		}
	}
	if len(mismatched) > 0 {
		logger.Warn("weight columns do not match input variables",
			slog.Any("mismatched", mismatched))
	}
}
