package exporter

import (
	"strconv"
	"time"
)

// formatFloat keeps full precision; the shortest representation that round-trips.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
