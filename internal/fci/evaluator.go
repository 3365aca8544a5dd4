package fci

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fcig/internal/calendar"
	apperrors "fcig/internal/errors"
)

const (
	// DefaultWorkers matches the size of the evaluation pool used historically.
	DefaultWorkers = 4
	// chunkSize is the number of dates handed to a worker at a time.
	chunkSize = 256
)

// DefaultPublicationStart is the first date published unless configured otherwise.
var DefaultPublicationStart = calendar.Date(1990, time.January, 1)

// Options configures an Evaluator.
type Options struct {
	Workers          int
	PublicationStart time.Time
	Logger           *slog.Logger
}

// Result is the output of one evaluation.
type Result struct {
	ThreeYear *Series
	OneYear   *Series
	Evaluated int
	Published int
	Duration  time.Duration
}

// Series returns the series for a horizon.
func (r *Result) Series(h Horizon) *Series {
	if h == OneYear {
		return r.OneYear
	}
	return r.ThreeYear
}

// Evaluator computes the index for every eligible date of a table.
type Evaluator struct {
	table   *Table
	cache   *Cache
	weights *Weights
	opts    Options
	logger  *slog.Logger
}

// NewEvaluator checks that the inputs fit together.
func NewEvaluator(t *Table, c *Cache, w *Weights, opts Options) (*Evaluator, error) {
	if t == nil || c == nil || w == nil {
		return nil, fmt.Errorf("table, cache and weights are required")
	}
	if c.Rows() != t.Len() {
		return nil, apperrors.NewCacheError(
			fmt.Sprintf("cache covers %d rows, table has %d", c.Rows(), t.Len()), nil)
	}
	if w.Variables() != len(t.Variables()) {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("weight matrix has %d columns, table has %d variables",
				w.Variables(), len(t.Variables())))
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.PublicationStart.IsZero() {
		opts.PublicationStart = DefaultPublicationStart
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Evaluator{
		table:   t,
		cache:   c,
		weights: w,
		opts:    opts,
		logger:  logger.With(slog.String("component", "fci_evaluator")),
	}, nil
}

// EligibleFrom returns the earliest date with a full three-year lookback.
func (e *Evaluator) EligibleFrom() time.Time {
	return calendar.AddMonths(e.table.Earliest(), LookbackMonths)
}

// EvaluationStart returns the first row dated on or after EligibleFrom.
func (e *Evaluator) EvaluationStart() int {
	return e.table.FirstOnOrAfter(e.EligibleFrom())
}

// Evaluate runs the history walk and decomposition for every eligible row
// on a fixed pool of workers and assembles both series in date order.
func (e *Evaluator) Evaluate(ctx context.Context) (*Result, error) {
	started := time.Now()
	first := e.EvaluationStart()
	n := e.table.Len() - first
	if n <= 0 {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("no row on or after %s: need %d months of history after %s",
				e.EligibleFrom().Format(time.DateOnly), LookbackMonths,
				e.table.Earliest().Format(time.DateOnly)))
	}

	e.logger.InfoContext(ctx, "evaluating index",
		slog.Int("rows", n),
		slog.String("from", e.table.Date(first).Format(time.DateOnly)),
		slog.Int("workers", e.opts.Workers),
	)

	contributions := make([]Contribution, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for lo := 0; lo < n; lo += chunkSize {
		hi := min(lo+chunkSize, n)
		g.Go(func() error {
			for off := lo; off < hi; off++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				row := first + off
				w, err := e.cache.Walk(e.table, row)
				if err != nil {
					return fmt.Errorf("history for %s: %w",
						e.table.Date(row).Format(time.DateOnly), err)
				}
				contributions[off] = Decompose(e.table, w, e.weights)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := e.assemble(first, contributions)
	res.Duration = time.Since(started)

	e.logger.InfoContext(ctx, "index evaluated",
		slog.Int("evaluated", res.Evaluated),
		slog.Int("published", res.Published),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// assemble publishes contributions on the input calendar, dropping dates
// before the publication start.
func (e *Evaluator) assemble(first int, contributions []Contribution) *Result {
	freq := Daily
	if e.table.Monthly() {
		freq = Monthly
	}
	three := &Series{Horizon: ThreeYear, Frequency: freq, Variables: e.table.Variables()}
	one := &Series{Horizon: OneYear, Frequency: freq, Variables: e.table.Variables()}

	for off, c := range contributions {
		date := e.table.OriginalDate(first + off)
		if date.Before(e.opts.PublicationStart) {
			continue
		}
		comps, val := publish(c.ThreeYear)
		three.Points = append(three.Points, Point{Date: date, Value: val, Components: comps})
		comps, val = publish(c.OneYear)
		one.Points = append(one.Points, Point{Date: date, Value: val, Components: comps})
	}

	return &Result{
		ThreeYear: three,
		OneYear:   one,
		Evaluated: len(contributions),
		Published: three.Len(),
	}
}
