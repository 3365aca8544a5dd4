package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved application directories.
// Every relative path in the configuration resolves against BaseDir.
type Paths struct {
	BaseDir   string
	DataDir   string
	OutputDir string
	LogsDir   string
	ConfigDir string
}

// GetPaths resolves directories against FCIG_HOME, or the working directory
// when it is unset.
func GetPaths() (*Paths, error) {
	base := os.Getenv(HomeEnv)
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	return NewPaths(base)
}

// NewPaths lays out the default directories under base.
func NewPaths(base string) (*Paths, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %q: %w", base, err)
	}
	return &Paths{
		BaseDir:   abs,
		DataDir:   filepath.Join(abs, DefaultDataDir),
		OutputDir: filepath.Join(abs, filepath.FromSlash(DefaultOutputDir)),
		LogsDir:   filepath.Join(abs, DefaultLogsDir),
		ConfigDir: filepath.Join(abs, DefaultConfigDir),
	}, nil
}

// Resolve returns p unchanged when absolute, otherwise joined to BaseDir.
func (p *Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.BaseDir, filepath.FromSlash(path))
}

// ConfigFile is the default location of the YAML config file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, DefaultConfigFile)
}

// EnsureDirectories creates the directories the application writes to.
func (p *Paths) EnsureDirectories(extra ...string) error {
	dirs := append([]string{p.OutputDir, p.LogsDir}, extra...)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LogPathResolution logs the resolved directories at debug level.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Resolved application paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("config_dir", p.ConfigDir))
}
