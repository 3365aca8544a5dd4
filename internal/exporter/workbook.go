package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"fcig/internal/fci"
)

// WorkbookName is the file written by WorkbookWriter.
const WorkbookName = "FCI_output.xlsx"

// WorkbookWriter writes every series into one workbook, a sheet per series.
type WorkbookWriter struct {
	dir    string
	logger *slog.Logger
}

// NewWorkbookWriter creates a writer saving into dir
func NewWorkbookWriter(dir string, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{dir: dir, logger: logger.With(slog.String("component", "workbook_writer"))}
}

// Write saves the workbook and returns its path.
func (w *WorkbookWriter) Write(series ...*fci.Series) (string, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("workbook needs at least one series")
	}

	f := excelize.NewFile()
	defer f.Close()

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return "", fmt.Errorf("create date style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("create header style: %w", err)
	}

	for i, s := range series {
		sheet := sheetName(s)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return "", fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, s, headerStyle, dateStyle); err != nil {
			return "", fmt.Errorf("write sheet %s: %w", sheet, err)
		}
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(w.dir, WorkbookName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("Exported workbook", slog.String("path", path), slog.Int("sheets", len(series)))
	return path, nil
}

// Sheet names are limited to 31 characters.
func sheetName(s *fci.Series) string {
	name := "threeyear"
	if s.Horizon == fci.OneYear {
		name = "oneyear"
	}
	if s.Frequency == fci.Quarterly {
		name += "_quarterly"
	}
	return name
}

func writeSheet(f *excelize.File, sheet string, s *fci.Series, headerStyle, dateStyle int) error {
	header := SeriesHeader(s)
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, p := range s.Points {
		row := make([]any, 0, len(p.Components)+2)
		row = append(row, p.Date, p.Value)
		for _, c := range p.Components {
			row = append(row, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if n := len(s.Points); n > 0 {
		bottom, err := excelize.CoordinatesToCellName(1, n+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A2", bottom, dateStyle); err != nil {
			return err
		}
	}
	return nil
}
