package dataio

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fcig/internal/calendar"
	apperrors "fcig/internal/errors"
	"fcig/internal/fci"
	"fcig/internal/shared/testutil"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadObservations_CSV(t *testing.T) {
	path := writeFile(t, "input.csv", strings.Join([]string{
		"date,A,B,note",
		"1/31/1990,1.5,2,x",
		"2/28/1990, -0.25,3e-2,y",
		"",
		"3/31/1990,0,1,z",
	}, "\n"))

	obs, err := LoadObservations(path, ReadOptions{Variables: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, obs.Variables)
	assert.Equal(t, []string{"note"}, obs.Passthrough)
	assert.Equal(t, calendar.LayoutUS, obs.Layout)
	require.Len(t, obs.Dates, 3)
	assert.Equal(t, calendar.Date(1990, 2, 28), obs.Dates[1])
	assert.Equal(t, []float64{-0.25, 0.03}, obs.Values[1])
}

func TestReadGrid_StripsByteOrderMark(t *testing.T) {
	path := writeFile(t, "excel.csv", "\ufeffdate,A\n1990-01-31,1\n")

	grid, err := readGrid(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "A"}, grid[0])

	obs, err := LoadObservations(path, ReadOptions{Variables: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, obs.Variables)
}

func TestLoadObservations_XLSX(t *testing.T) {
	path := writeWorkbook(t, "Data", [][]any{
		{"date", "A", "B"},
		{"1990-01-31", "1", "2"},
		{"1990-02-28", "3", "4"},
	})

	obs, err := LoadObservations(path, ReadOptions{Sheet: "Data", Variables: 2})
	require.NoError(t, err)
	assert.Equal(t, calendar.LayoutISO, obs.Layout)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, obs.Values)

	_, err = LoadObservations(path, ReadOptions{Sheet: "Missing", Variables: 2})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestParseObservations_MissingValues(t *testing.T) {
	for _, token := range []string{"", "NA", "n/a", "NaN", "null", "#N/A"} {
		t.Run("token "+token, func(t *testing.T) {
			grid := [][]string{
				{"date", "A", "B"},
				{"1990-01-31", "1", "2"},
				{"1990-02-28", "3", token},
			}
			_, err := ParseObservations(grid, 2)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
			assert.Equal(t, 3, appErr.Context["line"])
			assert.Equal(t, "B", appErr.Context["column"])
		})
	}
}

func TestParseObservations_Errors(t *testing.T) {
	tests := []struct {
		name     string
		grid     [][]string
		vars     int
		wantType apperrors.ErrorType
	}{
		{"header only", [][]string{{"date", "A"}}, 1, apperrors.ErrTypeValidation},
		{"too few columns", [][]string{{"date", "A"}, {"1990-01-31", "1"}}, 2, apperrors.ErrTypeValidation},
		{"bad number", [][]string{{"date", "A"}, {"1990-01-31", "abc"}}, 1, apperrors.ErrTypeParsing},
		{"bad date", [][]string{{"date", "A"}, {"1990-13-45", "1"}}, 1, apperrors.ErrTypeParsing},
		{"extra cells", [][]string{{"date", "A"}, {"1990-01-31", "1", "2"}}, 1, apperrors.ErrTypeValidation},
		{"zero variables", [][]string{{"date", "A"}, {"1990-01-31", "1"}}, 0, apperrors.ErrTypeConfig},
		{
			"precomputed pointer columns",
			[][]string{
				{"date", "V1", "V2", "V3", "V4", "V5", "V6", "V7", "V8", "A", "B", "C", "D", "E", "F", "G"},
				{"1990-01-31", "0", "", "", "", "", "", "", "", "1", "1", "1", "1", "1", "1", "1"},
			},
			7,
			apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseObservations(tt.grid, tt.vars)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestLoadObservations_MissingFile(t *testing.T) {
	_, err := LoadObservations(filepath.Join(t.TempDir(), "nope.csv"), ReadOptions{Variables: 7})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func weightsCSV(rows int, names ...string) string {
	var b strings.Builder
	b.WriteString("lag," + strings.Join(names, ",") + "\n")
	for r := 0; r < rows; r++ {
		b.WriteString("L" + string(rune('0'+r%10)))
		for range names {
			b.WriteString(",0.5")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func TestLoadWeights_CSV(t *testing.T) {
	path := writeFile(t, "weights.csv", weightsCSV(fci.Lags, "A", "B", "C"))

	w, err := LoadWeights(path, "")
	require.NoError(t, err)
	assert.Equal(t, 3, w.Variables())
	assert.Equal(t, []string{"A", "B", "C"}, w.Names())
	assert.Equal(t, 0.5, w.At(fci.Lags-1, 2))
}

func TestLoadWeights_XLSX(t *testing.T) {
	rows := [][]any{{"lag", "A", "B"}}
	for k := 0; k < fci.Lags; k++ {
		rows = append(rows, []any{k, float64(k) / 10, 1})
	}
	path := writeWorkbook(t, "Sheet1", rows)

	w, err := LoadWeights(path, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, w.At(7, 0), 1e-12)
	assert.Equal(t, 1.0, w.At(11, 1))
}

func TestParseWeights_Errors(t *testing.T) {
	lagRows := func(n int) [][]string {
		grid := [][]string{{"lag", "A"}}
		for k := 0; k < n; k++ {
			grid = append(grid, []string{"x", "1"})
		}
		return grid
	}

	tests := []struct {
		name    string
		grid    [][]string
		errType apperrors.ErrorType
	}{
		{name: "empty", grid: nil, errType: apperrors.ErrTypeValidation},
		{name: "no variables", grid: [][]string{{"lag"}}, errType: apperrors.ErrTypeValidation},
		{name: "too few lags", grid: lagRows(5), errType: apperrors.ErrTypeValidation},
		{name: "too many lags", grid: lagRows(fci.Lags + 1), errType: apperrors.ErrTypeValidation},
		{
			name:    "trailing garbage row",
			grid:    append(lagRows(fci.Lags), []string{"garbage"}),
			errType: apperrors.ErrTypeValidation,
		},
		{
			name: "missing weight",
			grid: func() [][]string {
				g := lagRows(fci.Lags)
				g[3][1] = "NA"
				return g
			}(),
			errType: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParseWeights(tt.grid)
			require.Error(t, err)
			assert.Nil(t, w)
			assert.True(t, apperrors.IsType(err, tt.errType))
		})
	}
}

func TestParseWeights_SkipsBlankRows(t *testing.T) {
	grid := [][]string{{"lag", "A"}}
	for k := 0; k < fci.Lags; k++ {
		grid = append(grid, []string{"x", "1"})
		if k == 4 {
			grid = append(grid, []string{"", ""})
		}
	}
	grid = append(grid, []string{})

	w, err := ParseWeights(grid)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Variables())
}

func TestCheckNames(t *testing.T) {
	w, err := ParseWeights(func() [][]string {
		grid := [][]string{{"lag", "A", "B"}}
		for k := 0; k < fci.Lags; k++ {
			grid = append(grid, []string{"x", "1", "1"})
		}
		return grid
	}())
	require.NoError(t, err)

	logger, logs := testutil.NewTestLogger(t)

	CheckNames(logger, w, []string{"a", "B"})
	assert.Zero(t, logs.Count())

	CheckNames(logger, w, []string{"A", "C"})
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "weight columns do not match")
	assert.Equal(t, []string{"C/B"}, logs.GetRecords()[0].Attrs["mismatched"])
}
