// Package app wires the index server: configuration, logging, telemetry,
// the optional InfluxDB sink, the run manager and the HTTP router.
//
// Initialization order:
//
//	1. Ensure the output and log directories exist
//	2. Initialize OpenTelemetry and the index metrics
//	3. Create the InfluxDB sink when enabled
//	4. Build the pipeline runner and the run manager
//	5. Set up middleware and routes
//	6. Configure the HTTP server
//
// Start computes the index in the background and begins serving at once;
// until the first run completes the series endpoints answer 503.
//
// The batch command reuses NewComponents to run the same pipeline once
// without a server.
package app
