package exporter

import (
	"fmt"
	"log/slog"

	"fcig/internal/fci"
)

// SeriesName is the base name used for a series' file and sheet,
// e.g. "threeyearFCI_output" or "oneyearFCI_output_quarterly".
func SeriesName(s *fci.Series) string {
	name := "threeyearFCI_output"
	if s.Horizon == fci.OneYear {
		name = "oneyearFCI_output"
	}
	if s.Frequency == fci.Quarterly {
		name += "_quarterly"
	}
	return name
}

// SeriesHeader returns date, the index column, then one column per variable.
func SeriesHeader(s *fci.Series) []string {
	header := make([]string, 0, len(s.Variables)+2)
	header = append(header, "date", s.Horizon.ValueColumn())
	return append(header, s.Variables...)
}

func pointRecord(p fci.Point) []string {
	record := make([]string, 0, len(p.Components)+2)
	record = append(record, formatDate(p.Date), formatFloat(p.Value))
	for _, c := range p.Components {
		record = append(record, formatFloat(c))
	}
	return record
}

// SeriesExporter writes index series as CSV files with fixed names
type SeriesExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewSeriesExporter creates an exporter writing into dir
func NewSeriesExporter(dir string, logger *slog.Logger) *SeriesExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeriesExporter{
		csvWriter: NewCSVWriter(dir, logger),
		logger:    logger.With(slog.String("component", "series_exporter")),
	}
}

// Export writes one file per series and returns their paths in order.
func (e *SeriesExporter) Export(series ...*fci.Series) ([]string, error) {
	paths := make([]string, 0, len(series))
	for _, s := range series {
		path, err := e.exportOne(s)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (e *SeriesExporter) exportOne(s *fci.Series) (string, error) {
	name := SeriesName(s) + ".csv"
	stream, err := e.csvWriter.CreateStreamWriter(name, SeriesHeader(s))
	if err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	for _, p := range s.Points {
		if err := stream.WriteRecord(pointRecord(p)); err != nil {
			stream.Close()
			return "", fmt.Errorf("export %s: %w", name, err)
		}
	}
	if err := stream.Close(); err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}

	e.logger.Info("Exported series",
		slog.String("path", stream.Path()),
		slog.String("horizon", string(s.Horizon)),
		slog.String("frequency", string(s.Frequency)),
		slog.Int("rows", stream.Rows()))
	return stream.Path(), nil
}
