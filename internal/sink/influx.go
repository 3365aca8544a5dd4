// Package sink publishes computed index series to InfluxDB.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"fcig/internal/config"
	apperrors "fcig/internal/errors"
	"fcig/internal/fci"
)

// PointWriter is the part of api.WriteAPIBlocking the sink needs.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
	Flush(ctx context.Context) error
}

// InfluxSink writes one point per published index observation. Points are
// tagged with horizon and frequency and carry the index value and one field
// per variable component.
type InfluxSink struct {
	writer      PointWriter
	client      influxdb2.Client
	measurement string
	batchSize   int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewInfluxSink connects to the configured server.
func NewInfluxSink(cfg config.InfluxConfig, logger *slog.Logger) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	s := NewWithWriter(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), cfg.Measurement, cfg.BatchSize, logger)
	s.client = client
	s.timeout = cfg.Timeout
	return s
}

// NewWithWriter builds a sink over any PointWriter.
func NewWithWriter(writer PointWriter, measurement string, batchSize int, logger *slog.Logger) *InfluxSink {
	if logger == nil {
		logger = slog.Default()
	}
	if measurement == "" {
		measurement = config.DefaultMeasurement
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &InfluxSink{
		writer:      writer,
		measurement: measurement,
		batchSize:   batchSize,
		timeout:     30 * time.Second,
		logger:      logger.With(slog.String("component", "influx_sink")),
	}
}

// Ping checks the server is ready. Sinks built over a bare writer always succeed.
func (s *InfluxSink) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return apperrors.NewSinkError("influxdb ping failed", err)
	}
	if !ok {
		return apperrors.NewSinkError("influxdb is not ready", nil)
	}
	return nil
}

// Write publishes every point of every series, flushing after each series.
// It returns the number of points written per series, in order.
func (s *InfluxSink) Write(ctx context.Context, series ...*fci.Series) ([]int, error) {
	written := make([]int, 0, len(series))
	for _, sr := range series {
		n, err := s.writeSeries(ctx, sr)
		if err != nil {
			return written, err
		}
		written = append(written, n)
	}
	return written, nil
}

func (s *InfluxSink) writeSeries(ctx context.Context, sr *fci.Series) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fields := fieldNames(sr.Variables)
	batch := make([]*write.Point, 0, s.batchSize)
	written := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.writer.WritePoint(ctx, batch...); err != nil {
			return apperrors.NewSinkError("influxdb write failed", err).
				WithContext("horizon", string(sr.Horizon)).
				WithContext("frequency", string(sr.Frequency)).
				WithContext("written", written)
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, p := range sr.Points {
		batch = append(batch, s.point(sr, fields, p))
		if len(batch) == s.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	if err := s.writer.Flush(ctx); err != nil {
		return written, apperrors.NewSinkError("influxdb flush failed", err)
	}

	s.logger.InfoContext(ctx, "Wrote series to InfluxDB",
		slog.String("measurement", s.measurement),
		slog.String("horizon", string(sr.Horizon)),
		slog.String("frequency", string(sr.Frequency)),
		slog.Int("points", written))
	return written, nil
}

func (s *InfluxSink) point(sr *fci.Series, fields []string, p fci.Point) *write.Point {
	pt := influxdb2.NewPointWithMeasurement(s.measurement).
		AddTag("horizon", string(sr.Horizon)).
		AddTag("frequency", string(sr.Frequency)).
		SortTags().
		AddField("value", p.Value).
		SetTime(p.Date)
	for i, c := range p.Components {
		if i < len(fields) {
			pt.AddField(fields[i], c)
		}
	}
	return pt
}

// fieldNames maps variable names to field keys that cannot shadow "value".
func fieldNames(variables []string) []string {
	out := make([]string, len(variables))
	for i, v := range variables {
		name := strings.TrimSpace(v)
		switch {
		case name == "":
			name = fmt.Sprintf("v%d", i+1)
		case name == "value":
			name = "value_component"
		}
		out[i] = name
	}
	return out
}

// Close releases the client connection.
func (s *InfluxSink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
