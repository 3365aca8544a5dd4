package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// FixtureVariables are the column names written by the index fixtures.
var FixtureVariables = []string{"ffr", "t10", "mort30", "bbb", "dow", "zillow", "dollar"}

// IndexFixture describes generated index inputs. The first variable is 1 in
// every month and the rest are 0; every weight is Weight.
type IndexFixture struct {
	Months int
	Layout string
	Weight float64
}

// DefaultIndexFixture is 60 month-ends from January 1980 in ISO form with
// weights of 0.1, which yields a 3y value of -1.2 and a 1y value of -0.4.
func DefaultIndexFixture() IndexFixture {
	return IndexFixture{Months: 60, Layout: time.DateOnly, Weight: 0.1}
}

// MonthEnd returns the i-th month-end of the fixture, counted from January 1980.
func MonthEnd(i int) time.Time {
	return time.Date(1980, time.Month(i+2), 0, 0, 0, 0, 0, time.UTC)
}

// InputRows returns the input table including its header row.
func (f IndexFixture) InputRows() [][]string {
	rows := [][]string{append([]string{"date"}, FixtureVariables...)}
	for i := 0; i < f.Months; i++ {
		row := []string{MonthEnd(i).Format(f.Layout), "1"}
		for range FixtureVariables[1:] {
			row = append(row, "0")
		}
		rows = append(rows, row)
	}
	return rows
}

// WeightRows returns the 12-lag weight table including its header row.
func (f IndexFixture) WeightRows() [][]string {
	rows := [][]string{append([]string{"lag"}, FixtureVariables...)}
	w := fmt.Sprint(f.Weight)
	for k := 0; k < 12; k++ {
		row := []string{fmt.Sprintf("L%d", k)}
		for range FixtureVariables {
			row = append(row, w)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the fixture as input.csv and weights.csv under dir.
func (f IndexFixture) WriteCSV(t *testing.T, dir string) (input, weights string) {
	t.Helper()
	input = filepath.Join(dir, "input.csv")
	weights = filepath.Join(dir, "weights.csv")
	writeCSV(t, input, f.InputRows())
	writeCSV(t, weights, f.WeightRows())
	return input, weights
}

// WriteXLSX writes the input and weight tables as two sheets of one workbook.
func (f IndexFixture) WriteXLSX(t *testing.T, path, inputSheet, weightsSheet string) {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()

	require.NoError(t, wb.SetSheetName("Sheet1", inputSheet))
	_, err := wb.NewSheet(weightsSheet)
	require.NoError(t, err)
	writeSheet(t, wb, inputSheet, f.InputRows())
	writeSheet(t, wb, weightsSheet, f.WeightRows())
	require.NoError(t, wb.SaveAs(path))
}

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

func writeSheet(t *testing.T, wb *excelize.File, sheet string, rows [][]string) {
	t.Helper()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, wb.SetSheetRow(sheet, cell, &values))
	}
}
