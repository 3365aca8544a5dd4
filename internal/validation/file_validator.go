// Package validation checks the index input files and output directory
// before a run, so configuration mistakes surface with one clear message
// instead of as a failed load stage.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"fcig/internal/config"
	apperrors "fcig/internal/errors"
)

// FileValidator provides preflight checks for index runs.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateIndexInputs checks both input files and the output directory of
// cfg, reporting every problem found.
func (v *FileValidator) ValidateIndexInputs(cfg config.IndexConfig) error {
	var errs []error
	if err := v.ValidateTable(cfg.InputFile, cfg.InputSheet); err != nil {
		errs = append(errs, fmt.Errorf("input: %w", err))
	}
	if err := v.ValidateTable(cfg.WeightsFile, cfg.WeightsSheet); err != nil {
		errs = append(errs, fmt.Errorf("weights: %w", err))
	}
	if cfg.OutputDir != "" {
		if err := v.ValidateOutputDirectory(cfg.OutputDir); err != nil {
			errs = append(errs, fmt.Errorf("output: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ValidateTable checks that path is a readable CSV or Excel file and, for
// Excel, that sheet exists when named.
func (v *FileValidator) ValidateTable(path, sheet string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return nil
	case ".xlsx", ".xlsm":
		return v.validateWorkbook(path, sheet)
	default:
		v.logger.Error("Unsupported file type",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewAppValidationError(
			fmt.Sprintf("file %s is neither CSV nor Excel (extension %q)", path, ext))
	}
}

func (v *FileValidator) validateWorkbook(path, sheet string) error {
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s is a temporary Excel file", path))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		v.logger.Error("Failed to open workbook",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewParsingError(fmt.Sprintf("file %s is not a readable workbook", path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("workbook %s has no sheets", path))
	}
	if sheet == "" {
		return nil
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return apperrors.NewAppValidationError(
			fmt.Sprintf("workbook %s has no sheet %q", path, sheet)).
			WithContext("sheets", sheets)
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	if path == "" {
		return apperrors.NewAppValidationError("file path is empty")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return apperrors.NewStorageError(fmt.Sprintf("file %s does not exist", path), err)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}
