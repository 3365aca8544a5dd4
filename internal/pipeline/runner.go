// Package pipeline runs one end-to-end index computation: load the inputs,
// build the lag-pointer cache, evaluate, export and optionally publish.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fcig/internal/config"
	"fcig/internal/dataio"
	apperrors "fcig/internal/errors"
	"fcig/internal/exporter"
	"fcig/internal/fci"
	"fcig/internal/infrastructure"
)

// Sink receives the exported series. *sink.InfluxSink implements it.
type Sink interface {
	Write(ctx context.Context, series ...*fci.Series) ([]int, error)
}

// Runner executes index runs for one configuration.
type Runner struct {
	cfg              config.IndexConfig
	publicationStart time.Time
	sink             Sink
	tracer           trace.Tracer
	metrics          *infrastructure.IndexMetrics
	logger           *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink publishes every run's series to s.
func WithSink(s Sink) Option { return func(r *Runner) { r.sink = s } }

// WithTracer sets the tracer for run and stage spans.
func WithTracer(t trace.Tracer) Option { return func(r *Runner) { r.tracer = t } }

// WithMetrics records run metrics on m.
func WithMetrics(m *infrastructure.IndexMetrics) Option { return func(r *Runner) { r.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// NewRunner validates cfg and applies opts.
func NewRunner(cfg config.IndexConfig, opts ...Option) (*Runner, error) {
	start, err := cfg.PublicationStartDate()
	if err != nil {
		return nil, apperrors.NewConfigError("invalid publication start", err).
			WithContext("value", cfg.PublicationStart)
	}
	if cfg.Variables <= 0 {
		return nil, apperrors.NewConfigError(fmt.Sprintf("variables must be positive, got %d", cfg.Variables), nil)
	}

	r := &Runner{
		cfg:              cfg,
		publicationStart: start,
		tracer:           otel.Tracer(infrastructure.InstrumentationName),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "pipeline"))
	return r, nil
}

// Run executes every stage. On failure the returned Run carries the summary
// of the stages that did execute.
func (r *Runner) Run(ctx context.Context) (*Run, error) {
	run := &Run{Summary: Summary{
		ID:        uuid.New().String(),
		Status:    StatusRunning,
		StartTime: time.Now().UTC(),
	}}
	ctx = infrastructure.WithTraceID(ctx, run.ID)
	logger := r.logger.With(slog.String("run_id", run.ID))

	ctx, span := r.tracer.Start(ctx, "fci.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", run.ID),
			attribute.String("run.input", r.cfg.InputFile),
			attribute.Int("run.workers", r.cfg.Workers),
		),
	)
	defer span.End()

	logger.InfoContext(ctx, "Index run started",
		slog.String("input", r.cfg.InputFile),
		slog.String("weights", r.cfg.WeightsFile))

	err := r.execute(ctx, run, logger)

	run.EndTime = time.Now().UTC()
	elapsed := run.EndTime.Sub(run.StartTime)
	r.metrics.RecordRun(ctx, elapsed, err)

	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "Index run failed", slog.String("error", err.Error()), slog.Duration("duration", elapsed))
		return run, err
	}

	run.Status = StatusCompleted
	span.SetStatus(codes.Ok, "")
	logger.InfoContext(ctx, "Index run completed",
		slog.Int("evaluated", run.Evaluated),
		slog.Int("published", run.Published),
		slog.Duration("duration", elapsed))
	return run, nil
}

func (r *Runner) execute(ctx context.Context, run *Run, logger *slog.Logger) error {
	var (
		obs     *dataio.Observations
		weights *fci.Weights
		table   *fci.Table
		cache   *fci.Cache
	)

	err := r.stage(ctx, run, StageLoad, func(ctx context.Context) error {
		var err error
		obs, err = dataio.LoadObservations(r.cfg.InputFile, dataio.ReadOptions{
			Sheet:     r.cfg.InputSheet,
			Variables: r.cfg.Variables,
		})
		if err != nil {
			return fmt.Errorf("load input: %w", err)
		}
		weights, err = dataio.LoadWeights(r.cfg.WeightsFile, r.cfg.WeightsSheet)
		if err != nil {
			return fmt.Errorf("load weights: %w", err)
		}
		dataio.CheckNames(logger, weights, obs.Variables)
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("input.rows", len(obs.Dates)),
			attribute.String("input.layout", obs.Layout.String()),
		)
		return nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, run, StageTable, func(context.Context) error {
		var err error
		table, err = fci.NewTable(obs.Dates, obs.Variables, obs.Values)
		if err != nil {
			return fmt.Errorf("normalize calendar: %w", err)
		}
		run.Rows = table.Len()
		run.Variables = table.Variables()
		return nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, run, StageCache, func(ctx context.Context) error {
		var (
			stats fci.BuildStats
			err   error
		)
		cache, stats, err = fci.BuildCache(table)
		run.Cache = CacheSummary{
			Chains:       stats.Chains,
			SlotsWritten: stats.SlotsWritten,
			Reused:       stats.Reused,
			LookupMisses: stats.LookupMisses,
			Searches:     stats.Searches,
		}
		r.metrics.RecordCacheBuild(ctx, stats.SlotsWritten, stats.Searches, stats.Reused, stats.LookupMisses)
		if err != nil {
			return fmt.Errorf("build cache: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, run, StageEvaluate, func(ctx context.Context) error {
		ev, err := fci.NewEvaluator(table, cache, weights, fci.Options{
			Workers:          r.cfg.Workers,
			PublicationStart: r.publicationStart,
			Logger:           logger,
		})
		if err != nil {
			return err
		}
		res, err := ev.Evaluate(ctx)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		run.Evaluator = ev
		run.Result = res
		run.Evaluated = res.Evaluated
		run.Published = res.Published
		run.Frequency = res.ThreeYear.Frequency
		run.quarterly = map[fci.Horizon]*fci.Series{
			fci.ThreeYear: res.ThreeYear.Quarterly(),
			fci.OneYear:   res.OneYear.Quarterly(),
		}
		r.metrics.RecordEvaluation(ctx, res.Evaluated, res.Published)
		return nil
	})
	if err != nil {
		return err
	}

	series := run.AllSeries(r.cfg.Quarterly)

	if r.cfg.OutputDir != "" {
		err = r.stage(ctx, run, StageExport, func(context.Context) error {
			paths, err := exporter.NewSeriesExporter(r.cfg.OutputDir, logger).Export(series...)
			run.Outputs = append(run.Outputs, paths...)
			if err != nil {
				return apperrors.NewStorageError("export series", err)
			}
			if r.cfg.WriteXLSX {
				path, err := exporter.NewWorkbookWriter(r.cfg.OutputDir, logger).Write(series...)
				if err != nil {
					return apperrors.NewStorageError("export workbook", err)
				}
				run.Outputs = append(run.Outputs, path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if r.sink != nil {
		err = r.stage(ctx, run, StageSink, func(ctx context.Context) error {
			written, err := r.sink.Write(ctx, series...)
			for i, n := range written {
				run.SinkPoints += n
				r.metrics.RecordSinkPoints(ctx, string(series[i].Horizon), string(series[i].Frequency), n)
			}
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// stage runs fn inside a child span and records its duration.
func (r *Runner) stage(ctx context.Context, run *Run, name string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "fci.stage."+name,
		trace.WithAttributes(attribute.String("stage", name)))
	defer span.End()

	started := time.Now()
	err := fn(ctx)
	elapsed := time.Since(started)

	result := StageResult{Name: name, Duration: elapsed}
	if err != nil {
		result.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	run.Stages = append(run.Stages, result)
	r.metrics.RecordStage(ctx, name, elapsed, err)
	return err
}
