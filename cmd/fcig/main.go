// Command fcig computes the financial conditions index once from the
// configured inputs, writes the output files and exits.
//
// Flags override the configuration file and the FCIG_* environment:
//
//	fcig -input data/input_data.csv -weights data/multipliers.csv -out output -quarterly
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fcig/internal/app"
	"fcig/internal/config"
	"fcig/internal/infrastructure"
	"fcig/internal/validation"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// flags holds the parsed command line. Only flags the user set are applied.
type flags struct {
	config       string
	input        string
	inputSheet   string
	weights      string
	weightsSheet string
	variables    int
	start        string
	workers      int
	out          string
	quarterly    bool
	xlsx         bool
	influx       bool
	logLevel     string
}

func parseFlags(args []string, stderr io.Writer) (*flags, *flag.FlagSet, error) {
	f := &flags{}
	fs := flag.NewFlagSet("fcig", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.StringVar(&f.input, "input", "", "input data file (CSV or XLSX)")
	fs.StringVar(&f.inputSheet, "input-sheet", "", "sheet of an XLSX input file (default first)")
	fs.StringVar(&f.weights, "weights", "", "weight matrix file (CSV or XLSX)")
	fs.StringVar(&f.weightsSheet, "weights-sheet", "", "sheet of an XLSX weights file (default first)")
	fs.IntVar(&f.variables, "variables", 0, "number of index variables after the date column")
	fs.StringVar(&f.start, "start", "", "publication start date, YYYY-MM-DD")
	fs.IntVar(&f.workers, "workers", 0, "evaluation workers, 1 for sequential")
	fs.StringVar(&f.out, "out", "", "output directory")
	fs.BoolVar(&f.quarterly, "quarterly", false, "also write quarterly series")
	fs.BoolVar(&f.xlsx, "xlsx", false, "also write the FCI_output.xlsx workbook")
	fs.BoolVar(&f.influx, "influx", false, "publish to InfluxDB")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return f, fs, nil
}

// apply copies every flag set on the command line into cfg.
func (f *flags) apply(cfg *config.Config, fs *flag.FlagSet) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "input":
			cfg.Index.InputFile = f.input
		case "input-sheet":
			cfg.Index.InputSheet = f.inputSheet
		case "weights":
			cfg.Index.WeightsFile = f.weights
		case "weights-sheet":
			cfg.Index.WeightsSheet = f.weightsSheet
		case "variables":
			cfg.Index.Variables = f.variables
		case "start":
			cfg.Index.PublicationStart = f.start
		case "workers":
			cfg.Index.Workers = f.workers
		case "out":
			cfg.Index.OutputDir = f.out
		case "quarterly":
			cfg.Index.Quarterly = f.quarterly
		case "xlsx":
			cfg.Index.WriteXLSX = f.xlsx
		case "influx":
			cfg.Influx.Enabled = f.influx
		case "log-level":
			cfg.Logging.Level = f.logLevel
		}
	})
}

func loadConfig(file string) (*config.Config, error) {
	if file == "" {
		return config.Load()
	}
	paths, err := config.GetPaths()
	if err != nil {
		return nil, err
	}
	return config.LoadFrom(paths, paths.Resolve(file))
}

// run returns the process exit status: 0 on success, 1 when the run fails,
// 2 on bad usage.
func run(args []string, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := loadConfig(f.config)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load configuration:", err)
		return 1
	}
	f.apply(cfg, fs)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	// Console logs go to stderr so stdout carries only the output paths.
	var logger *slog.Logger
	if cfg.Logging.Output == "console" {
		logger = infrastructure.NewLogger(stderr, cfg.Logging.Level)
	} else {
		if logger, err = infrastructure.InitializeLogger(cfg.Logging); err != nil {
			fmt.Fprintln(stderr, "failed to initialize logger:", err)
			return 1
		}
		defer infrastructure.CloseLogFile()
	}

	if err := validation.NewFileValidator(logger).ValidateIndexInputs(cfg.Index); err != nil {
		logger.Error("Preflight failed", slog.String("error", err.Error()))
		return 1
	}

	components, err := app.NewComponents(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := components.Close(context.Background()); err != nil {
			logger.Error("Shutdown failed", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Server.RunTimeout)
	defer cancel()

	result, err := components.Runner.Run(ctx)
	if err != nil {
		logger.Error("Index run failed", slog.String("error", err.Error()))
		return 1
	}

	for _, path := range result.Outputs {
		fmt.Fprintln(stdout, path)
	}
	return 0
}
