package testutil

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
		assert.True(t, handler.ContainsAttr("code", int64(500)))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
		AssertLogContains(t, handler, slog.LevelWarn, "warn")
	})

	t.Run("derived loggers share records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "runner")).
			WithGroup("run").
			Info("run completed", slog.String("id", "abc"))

		records := handler.GetRecords()
		require.Len(t, records, 1)
		assert.Equal(t, "runner", records[0].Attrs["component"])
		assert.Equal(t, "abc", records[0].Attrs["run.id"])
		AssertNoErrors(t, handler)
	})

	t.Run("clear functionality", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		require.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})
}

func TestIndexFixture_WriteCSV(t *testing.T) {
	f := DefaultIndexFixture()
	f.Months = 3
	input, weights := f.WriteCSV(t, t.TempDir())

	rows := readCSV(t, input)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"1980-01-31", "1", "0", "0", "0", "0", "0", "0"}, rows[1])
	assert.Equal(t, "1980-02-29", rows[2][0])

	rows = readCSV(t, weights)
	require.Len(t, rows, 13)
	assert.Equal(t, "L11", rows[12][0])
	assert.Equal(t, "0.1", rows[12][7])
}

func TestIndexFixture_WriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.xlsx")
	DefaultIndexFixture().WriteXLSX(t, path, "Data", "Weights")

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Data", "Weights"}, wb.GetSheetList())
	rows, err := wb.GetRows("Data")
	require.NoError(t, err)
	assert.Len(t, rows, 61)
	assert.Equal(t, "1984-12-31", rows[60][0])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}
