// Package exporter writes computed index series to disk.
//
// CSVWriter is the low-level streaming writer. SeriesExporter writes one CSV
// file per series using fixed file names (threeyearFCI_output.csv,
// oneyearFCI_output.csv and their _quarterly variants). WorkbookWriter puts every series into FCI_output.xlsx.
//
// Example usage:
//
//	paths, err := exporter.NewSeriesExporter(outDir, logger).Export(result.ThreeYear, result.OneYear)
//	book, err := exporter.NewWorkbookWriter(outDir, logger).Write(result.ThreeYear, result.OneYear)
package exporter
