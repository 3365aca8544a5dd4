package pipeline

import (
	"time"

	"fcig/internal/fci"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Stage names, in execution order.
const (
	StageLoad     = "load"
	StageTable    = "table"
	StageCache    = "build_cache"
	StageEvaluate = "evaluate"
	StageExport   = "export"
	StageSink     = "sink"
)

// StageResult records one executed stage.
type StageResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// CacheSummary is the JSON form of fci.BuildStats.
type CacheSummary struct {
	Chains       int `json:"chains"`
	SlotsWritten int `json:"slots_written"`
	Reused       int `json:"reused"`
	LookupMisses int `json:"lookup_misses"`
	Searches     int `json:"searches"`
}

// Summary describes a run without its series.
type Summary struct {
	ID         string        `json:"id"`
	Status     Status        `json:"status"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time,omitempty"`
	Rows       int           `json:"rows"`
	Variables  []string      `json:"variables,omitempty"`
	Frequency  fci.Frequency `json:"frequency,omitempty"`
	Evaluated  int           `json:"evaluated"`
	Published  int           `json:"published"`
	Cache      CacheSummary  `json:"cache"`
	Outputs    []string      `json:"outputs,omitempty"`
	SinkPoints int           `json:"sink_points"`
	Stages     []StageResult `json:"stages"`
	Error      string        `json:"error,omitempty"`
}

// Run is a finished computation and everything needed to query it.
type Run struct {
	Summary

	Evaluator *fci.Evaluator
	Result    *fci.Result
	quarterly map[fci.Horizon]*fci.Series
}

// Series returns the published series for h, resampled to quarters when quarterly is set.
func (r *Run) Series(h fci.Horizon, quarterly bool) *fci.Series {
	if r.Result == nil {
		return nil
	}
	if !quarterly {
		return r.Result.Series(h)
	}
	if q, ok := r.quarterly[h]; ok {
		return q
	}
	return r.Result.Series(h).Quarterly()
}

// AllSeries returns every series to export: both horizons, then their
// quarterly versions when withQuarterly is set.
func (r *Run) AllSeries(withQuarterly bool) []*fci.Series {
	out := []*fci.Series{r.Series(fci.ThreeYear, false), r.Series(fci.OneYear, false)}
	if withQuarterly {
		out = append(out, r.Series(fci.ThreeYear, true), r.Series(fci.OneYear, true))
	}
	return out
}
