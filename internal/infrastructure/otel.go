package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"fcig/internal/config"
)

const (
	// InstrumentationName names the tracer and meter of every component.
	InstrumentationName = "fcig"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// PrometheusHTTP serves the scrape endpoint; nil when Prometheus is disabled.
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics. With the "none" trace exporter
// and Prometheus disabled, the returned tracer and meter are no-ops.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()
	if logger == nil {
		logger = GetLogger()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(config.AppVersion),
			attribute.String("service.instance.id", generateInstanceID()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Tracer: otel.Tracer(InstrumentationName),
		Meter:  noop.NewMeterProvider().Meter(InstrumentationName),
		Logger: logger,
	}

	if err := initializeTracing(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if cfg.PrometheusEnabled {
		if err := initializeMetrics(res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("prometheus", cfg.PrometheusEnabled))

	return providers, nil
}

func initializeTracing(cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(config.AppVersion))
	otel.SetTracerProvider(tp)
	return nil
}

// initializeMetrics uses a private registry so repeated initialization never
// collides with collectors already registered globally.
func initializeMetrics(res *resource.Resource, providers *OTelProviders) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(config.AppVersion))
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	otel.SetMeterProvider(mp)
	return nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// IndexMetrics holds the instruments recorded by index runs and the HTTP layer.
// A nil *IndexMetrics records nothing.
type IndexMetrics struct {
	runsTotal         metric.Int64Counter
	runDuration       metric.Float64Histogram
	stageDuration     metric.Float64Histogram
	datesEvaluated    metric.Int64Counter
	pointsPublished   metric.Int64Counter
	cacheSlotsWritten metric.Int64Counter
	cacheSearches     metric.Int64Counter
	cacheReused       metric.Int64Counter
	cacheMisses       metric.Int64Counter
	sinkPoints        metric.Int64Counter
	httpRequests      metric.Int64Counter
	httpDuration      metric.Float64Histogram
	wsConnections     metric.Int64UpDownCounter
	wsMessages        metric.Int64Counter
	wsDropped         metric.Int64Counter
}

// NewIndexMetrics creates the instruments on meter.
func NewIndexMetrics(meter metric.Meter) (*IndexMetrics, error) {
	m := &IndexMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.runsTotal, "fci_runs_total", "Total number of index runs"},
		{&m.datesEvaluated, "fci_dates_evaluated_total", "Dates evaluated by the index engine"},
		{&m.pointsPublished, "fci_points_published_total", "Index points published after the publication start"},
		{&m.cacheSlotsWritten, "fci_cache_slots_written_total", "Lag-pointer cache slots written"},
		{&m.cacheSearches, "fci_cache_searches_total", "Predecessor searches performed while building the cache"},
		{&m.cacheReused, "fci_cache_reused_total", "Cache chains stopped on an already populated slot"},
		{&m.cacheMisses, "fci_cache_lookup_misses_total", "Predecessor searches that found no earlier row"},
		{&m.sinkPoints, "fci_sink_points_total", "Points written to the time-series sink"},
		{&m.httpRequests, "http_requests_total", "Total number of HTTP requests"},
		{&m.wsMessages, "ws_messages_sent_total", "Run events delivered to WebSocket clients"},
		{&m.wsDropped, "ws_clients_dropped_total", "WebSocket clients disconnected for a full send buffer"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.wsConnections, err = meter.Int64UpDownCounter("ws_connections_active",
		metric.WithDescription("Open WebSocket connections")); err != nil {
		return nil, err
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.runDuration, "fci_run_duration_seconds", "Index run duration in seconds"},
		{&m.stageDuration, "fci_stage_duration_seconds", "Index run stage duration in seconds"},
		{&m.httpDuration, "http_request_duration_seconds", "HTTP request duration in seconds"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s")); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func statusAttr(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("status", "failure")
	}
	return attribute.String("status", "success")
}

// RecordRun records one finished run.
func (m *IndexMetrics) RecordRun(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(statusAttr(err))
	m.runsTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordStage records the duration of one run stage.
func (m *IndexMetrics) RecordStage(ctx context.Context, stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage), statusAttr(err)))
}

// RecordCacheBuild records lag-pointer cache construction work.
func (m *IndexMetrics) RecordCacheBuild(ctx context.Context, slotsWritten, searches, reused, misses int) {
	if m == nil {
		return
	}
	m.cacheSlotsWritten.Add(ctx, int64(slotsWritten))
	m.cacheSearches.Add(ctx, int64(searches))
	m.cacheReused.Add(ctx, int64(reused))
	m.cacheMisses.Add(ctx, int64(misses))
}

// RecordEvaluation records how many dates were evaluated and published.
func (m *IndexMetrics) RecordEvaluation(ctx context.Context, evaluated, published int) {
	if m == nil {
		return
	}
	m.datesEvaluated.Add(ctx, int64(evaluated))
	m.pointsPublished.Add(ctx, int64(published))
}

// RecordSinkPoints records points written to the sink for one series.
func (m *IndexMetrics) RecordSinkPoints(ctx context.Context, horizon, frequency string, n int) {
	if m == nil {
		return
	}
	m.sinkPoints.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("horizon", horizon),
		attribute.String("frequency", frequency)))
}

// RecordHTTPRequest records one served request.
func (m *IndexMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status))
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordWSConnection adds delta to the open WebSocket connection count.
func (m *IndexMetrics) RecordWSConnection(ctx context.Context, delta int) {
	if m == nil {
		return
	}
	m.wsConnections.Add(ctx, int64(delta))
}

// RecordWSBroadcast records one broadcast to WebSocket clients.
func (m *IndexMetrics) RecordWSBroadcast(ctx context.Context, event string, delivered, dropped int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event", event))
	m.wsMessages.Add(ctx, int64(delivered), attrs)
	if dropped > 0 {
		m.wsDropped.Add(ctx, int64(dropped), attrs)
	}
}
