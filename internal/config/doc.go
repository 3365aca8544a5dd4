// Package config loads and validates application configuration.
//
// # Configuration Sources
//
// Values are layered, later sources overriding earlier ones:
//
//	1. Defaults (Default)
//	2. YAML file: $FCIG_CONFIG_FILE, or config/fcig.yaml under the base directory
//	3. Environment variables, after loading .env from the working directory
//
// # Environment Variables
//
// Variables follow FCIG_<SECTION>_<FIELD>:
//
//	FCIG_HOME=/srv/fcig
//	FCIG_INDEX_INPUT_FILE=data/input_data.csv
//	FCIG_INDEX_WORKERS=8
//	FCIG_INFLUX_ENABLED=true
//	FCIG_LOGGING_LEVEL=debug
//
// Relative paths resolve against FCIG_HOME, or the working directory when it
// is unset. Log files resolve against the logs directory.
package config
