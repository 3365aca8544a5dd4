package fci

import (
	"fmt"
	"time"

	"fcig/internal/calendar"
)

// Horizon selects the lookback of a published index.
type Horizon string

const (
	ThreeYear Horizon = "3y"
	OneYear   Horizon = "1y"
)

// ParseHorizon accepts "3y" or "1y".
func ParseHorizon(s string) (Horizon, error) {
	switch Horizon(s) {
	case ThreeYear, OneYear:
		return Horizon(s), nil
	default:
		return "", fmt.Errorf("unknown horizon %q, want %q or %q", s, ThreeYear, OneYear)
	}
}

// ValueColumn is the name of the index column in exported files.
func (h Horizon) ValueColumn() string {
	if h == OneYear {
		return "fci1val"
	}
	return "fci3val"
}

// Frequency describes the spacing of a series.
type Frequency string

const (
	Daily     Frequency = "daily"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
)

// Point is one published index observation.
type Point struct {
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	Components []float64 `json:"components"`
}

// Series is a published index, ordered by date ascending.
type Series struct {
	Horizon   Horizon   `json:"horizon"`
	Frequency Frequency `json:"frequency"`
	Variables []string  `json:"variables"`
	Points    []Point   `json:"points"`
}

// Len returns the number of points.
func (s *Series) Len() int { return len(s.Points) }

// Latest returns the most recent point.
func (s *Series) Latest() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Between returns the points dated within [from, to]. A zero bound is open.
func (s *Series) Between(from, to time.Time) *Series {
	out := s.withPoints(nil)
	for _, p := range s.Points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			break
		}
		out.Points = append(out.Points, p)
	}
	return out
}

// Quarterly keeps the last point of every calendar quarter present.
func (s *Series) Quarterly() *Series {
	out := s.withPoints(nil)
	out.Frequency = Quarterly
	for i, p := range s.Points {
		last := i == len(s.Points)-1 ||
			calendar.QuarterOf(s.Points[i+1].Date) != calendar.QuarterOf(p.Date)
		if last {
			out.Points = append(out.Points, p)
		}
	}
	return out
}

func (s *Series) withPoints(points []Point) *Series {
	return &Series{
		Horizon:   s.Horizon,
		Frequency: s.Frequency,
		Variables: s.Variables,
		Points:    points,
	}
}
