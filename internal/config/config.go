package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"fcig/internal/calendar"
	apperrors "fcig/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Index     IndexConfig     `yaml:"index" envconfig:"INDEX"`
	Influx    InfluxConfig    `yaml:"influx" envconfig:"INFLUX"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`

	// Paths is resolved at load time and never read from a source.
	Paths *Paths `yaml:"-" ignored:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RunTimeout      time.Duration   `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" validate:"gt=0"`
	AllowRecompute  bool            `yaml:"allow_recompute" envconfig:"ALLOW_RECOMPUTE"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`

	// AllowedOrigins lists browser origins that may open the event stream.
	// Requests without an Origin header are always accepted.
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// IndexConfig controls one index computation.
type IndexConfig struct {
	InputFile        string `yaml:"input_file" envconfig:"INPUT_FILE" validate:"required"`
	InputSheet       string `yaml:"input_sheet" envconfig:"INPUT_SHEET"`
	WeightsFile      string `yaml:"weights_file" envconfig:"WEIGHTS_FILE" validate:"required"`
	WeightsSheet     string `yaml:"weights_sheet" envconfig:"WEIGHTS_SHEET"`
	Variables        int    `yaml:"variables" envconfig:"VARIABLES" validate:"min=1"`
	PublicationStart string `yaml:"publication_start" envconfig:"PUBLICATION_START" validate:"required"`
	Quarterly        bool   `yaml:"quarterly" envconfig:"QUARTERLY"`
	Workers          int    `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=256"`
	OutputDir        string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	WriteXLSX        bool   `yaml:"write_xlsx" envconfig:"WRITE_XLSX"`
}

// InfluxConfig configures the optional InfluxDB sink.
type InfluxConfig struct {
	Enabled     bool          `yaml:"enabled" envconfig:"ENABLED"`
	URL         string        `yaml:"url" envconfig:"URL" validate:"required_if=Enabled true,omitempty,url"`
	Token       string        `yaml:"token" envconfig:"TOKEN"`
	Org         string        `yaml:"org" envconfig:"ORG" validate:"required_if=Enabled true"`
	Bucket      string        `yaml:"bucket" envconfig:"BUCKET" validate:"required_if=Enabled true"`
	Measurement string        `yaml:"measurement" envconfig:"MEASUREMENT" validate:"required"`
	BatchSize   int           `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"min=1"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	ServiceName       string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter     string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	SampleRate        float64 `yaml:"sample_rate" envconfig:"SAMPLE_RATE" validate:"gte=0,lte=1"`
	PrometheusEnabled bool    `yaml:"prometheus_enabled" envconfig:"PROMETHEUS_ENABLED"`
}

// PublicationStartDate parses Index.PublicationStart.
func (c *IndexConfig) PublicationStartDate() (time.Time, error) {
	return calendar.Parse(c.PublicationStart, calendar.DetectLayout(c.PublicationStart))
}

// Load reads .env, then the YAML file, then the environment, each overriding
// the previous. Relative paths resolve against FCIG_HOME or the working directory.
func Load() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	paths, err := GetPaths()
	if err != nil {
		return nil, apperrors.NewConfigError("failed to resolve paths", err)
	}
	file := os.Getenv(ConfigFileEnv)
	if file == "" {
		file = paths.ConfigFile()
	} else {
		file = paths.Resolve(file)
	}
	return LoadFrom(paths, file)
}

// LoadFrom builds the configuration for the given paths. file may be empty
// or missing; it is only read when present.
func LoadFrom(paths *Paths, file string) (*Config, error) {
	cfg := Default()

	if file != "" && FileExists(file) {
		if err := loadFromFile(file, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("file", file)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.resolvePaths(paths)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file on cfg; keys absent from the file keep their value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) resolvePaths(paths *Paths) {
	c.Paths = paths
	c.Index.InputFile = paths.Resolve(c.Index.InputFile)
	c.Index.WeightsFile = paths.Resolve(c.Index.WeightsFile)
	c.Index.OutputDir = paths.Resolve(c.Index.OutputDir)
	if c.Logging.FilePath != "" && !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(paths.LogsDir, c.Logging.FilePath)
	}
}

var validate = validator.New()

// Validate checks struct constraints and the fields that need parsing.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed: "+describe(err), err)
	}
	if _, err := c.Index.PublicationStartDate(); err != nil {
		return apperrors.NewConfigError("invalid index publication start", err).
			WithContext("value", c.Index.PublicationStart)
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      DefaultRunTimeout,
			AllowRecompute:  true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Index: IndexConfig{
			InputFile:        DefaultInputFile,
			WeightsFile:      DefaultWeightsFile,
			Variables:        7,
			PublicationStart: DefaultPublicationStart,
			Workers:          4,
			OutputDir:        DefaultOutputDir,
		},
		Influx: InfluxConfig{
			URL:         "http://localhost:8086",
			Org:         "fcig",
			Bucket:      "fci",
			Measurement: DefaultMeasurement,
			BatchSize:   500,
			Timeout:     30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:       "fcig",
			TraceExporter:     "none",
			SampleRate:        1,
			PrometheusEnabled: true,
		},
	}
}
