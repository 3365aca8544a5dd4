package config

import "time"

// Application constants
const (
	AppName    = "FCI-G"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. FCIG_INDEX_WORKERS.
	EnvPrefix = "FCIG"

	// HomeEnv overrides the base directory relative paths resolve against.
	HomeEnv = "FCIG_HOME"
	// ConfigFileEnv points at a YAML config file.
	ConfigFileEnv = "FCIG_CONFIG_FILE"

	DefaultDataDir   = "data"
	DefaultOutputDir = "data/output"
	DefaultLogsDir   = "logs"
	DefaultConfigDir = "config"

	DefaultConfigFile  = "fcig.yaml"
	DefaultInputFile   = "input_data.csv"
	DefaultWeightsFile = "multipliers.csv"
	DefaultLogFile     = "fcig.log"

	DefaultPublicationStart = "1990-01-01"
	DefaultMeasurement      = "fci"

	DefaultRunTimeout = 30 * time.Minute
)
