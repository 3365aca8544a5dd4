package dataio

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fcig/internal/calendar"
	apperrors "fcig/internal/errors"
)

// Observations is a validated input table before calendar normalization.
type Observations struct {
	Variables   []string
	Passthrough []string
	Layout      calendar.Layout
	Dates       []time.Time
	Values      [][]float64
}

// ReadOptions selects what to read from an input file.
type ReadOptions struct {
	// Sheet names the XLSX worksheet; empty means the first one.
	Sheet string
	// Variables is the number of index variables following the date column.
	Variables int
}

// LoadObservations reads a CSV or XLSX file whose header row names a date
// column, then the index variables, then any passthrough columns.
func LoadObservations(path string, opts ReadOptions) (*Observations, error) {
	grid, err := readGrid(path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	return ParseObservations(grid, opts.Variables)
}

// ParseObservations validates a grid of cells. Any missing value anywhere in
// the table is an error: the index needs fully observed history.
func ParseObservations(grid [][]string, variables int) (*Observations, error) {
	if variables <= 0 {
		return nil, apperrors.NewConfigError(fmt.Sprintf("variables must be positive, got %d", variables), nil)
	}
	if len(grid) < 2 {
		return nil, apperrors.NewAppValidationError("input needs a header row and at least one observation")
	}

	header := grid[0]
	width := len(header)
	if width < variables+1 {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("header has %d columns, need a date column and %d variables", width, variables))
	}

	if hasPointerColumns(header) {
		return nil, apperrors.NewAppValidationError(
			"input carries precomputed pointer columns V1..V8; remove them, the cache is rebuilt from dates")
	}

	obs := &Observations{
		Variables:   trimAll(header[1 : variables+1]),
		Passthrough: trimAll(header[variables+1:]),
	}

	layoutSet := false
	for r, row := range grid[1:] {
		line := r + 2
		if blankRow(row) {
			continue
		}
		if len(row) > width {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("line %d has %d cells, header has %d", line, len(row), width))
		}
		for c := 0; c < width; c++ {
			if isNA(cellAt(row, c)) {
				return nil, apperrors.NewAppValidationError("missing value in input").
					WithContext("line", line).
					WithContext("column", strings.TrimSpace(header[c]))
			}
		}

		if !layoutSet {
			obs.Layout = calendar.DetectLayout(row[0])
			layoutSet = true
		}
		date, err := calendar.Parse(row[0], obs.Layout)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d date", line), err)
		}

		values := make([]float64, variables)
		for v := 0; v < variables; v++ {
			values[v], err = parseFloat(row[v+1], header[v+1], line)
			if err != nil {
				return nil, err
			}
		}

		obs.Dates = append(obs.Dates, date)
		obs.Values = append(obs.Values, values)
	}

	if len(obs.Dates) == 0 {
		return nil, apperrors.NewAppValidationError("input has no observations")
	}
	return obs, nil
}

func parseFloat(str, fieldName string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, apperrors.NewParsingError(
			fmt.Sprintf("invalid %s on line %d: %q", strings.TrimSpace(fieldName), line, str), err)
	}
	return v, nil
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// hasPointerColumns reports whether columns 1..8 are the V1..V8 linked-list
// columns of the legacy 16-column layout.
func hasPointerColumns(header []string) bool {
	if len(header) < 9 {
		return false
	}
	for i := 1; i <= 8; i++ {
		if !strings.EqualFold(strings.TrimSpace(header[i]), "V"+strconv.Itoa(i)) {
			return false
		}
	}
	return true
}
