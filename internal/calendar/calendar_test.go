package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		layout  Layout
		want    time.Time
		wantErr bool
	}{
		{"us padded", "01/31/1980", LayoutUS, Date(1980, 1, 31), false},
		{"us single digit", "2/5/1999", LayoutUS, Date(1999, 2, 5), false},
		{"iso date", "1990-01-01", LayoutISO, Date(1990, 1, 1), false},
		{"iso with time", "1990-01-01 00:00:00", LayoutISO, Date(1990, 1, 1), false},
		{"iso rfc3339", "2001-07-04T10:30:00Z", LayoutISO, Date(2001, 7, 4), false},
		{"us layout for iso text", "1990-01-01", LayoutUS, time.Time{}, true},
		{"garbage", "yesterday", LayoutISO, time.Time{}, true},
		{"empty", "  ", LayoutISO, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input, tt.layout)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestDetectLayout(t *testing.T) {
	assert.Equal(t, LayoutUS, DetectLayout("12/31/1999"))
	assert.Equal(t, LayoutISO, DetectLayout("1999-12-31"))
}

func TestAddMonthsClamps(t *testing.T) {
	tests := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{Date(1980, 1, 31), 1, Date(1980, 2, 29)},
		{Date(1981, 1, 31), 1, Date(1981, 2, 28)},
		{Date(1980, 5, 31), -3, Date(1980, 2, 29)},
		{Date(1980, 1, 15), -1, Date(1979, 12, 15)},
		{Date(1980, 1, 31), 36, Date(1983, 1, 31)},
		{Date(1980, 2, 29), 36, Date(1983, 2, 28)},
		{Date(1980, 3, 10), -15, Date(1978, 12, 10)},
	}
	for _, tt := range tests {
		got := AddMonths(tt.in, tt.n)
		assert.True(t, tt.want.Equal(got), "%s %+d: got %s want %s", tt.in.Format("2006-01-02"), tt.n, got, tt.want)
	}
}

func TestMonthBoundaries(t *testing.T) {
	assert.Equal(t, Date(2000, 2, 1), FirstOfMonth(Date(2000, 2, 17)))
	assert.Equal(t, Date(2000, 2, 29), EndOfMonth(Date(2000, 2, 17)))
	assert.Equal(t, Date(1900, 2, 28), EndOfMonth(Date(1900, 2, 1)))
	assert.Equal(t, 31, DaysIn(2021, time.December))
}

func TestMonthDistance(t *testing.T) {
	assert.Equal(t, 3, MonthDistance(Date(1990, 4, 1), Date(1990, 1, 1)))
	assert.Equal(t, 2, MonthDistance(Date(1990, 2, 1), Date(1989, 12, 1)))
	assert.Equal(t, 0, MonthDistance(Date(1990, 5, 1), Date(1980, 5, 9)))
}

func TestIsMonthly(t *testing.T) {
	monthly := []time.Time{Date(1980, 1, 1), Date(1980, 2, 1), Date(1980, 3, 1), Date(1980, 4, 1)}
	assert.True(t, IsMonthly(monthly))

	daily := []time.Time{Date(1980, 1, 1), Date(1980, 1, 2), Date(1980, 1, 3)}
	assert.False(t, IsMonthly(daily))

	gappy := []time.Time{Date(1980, 1, 1), Date(1980, 2, 1), Date(1980, 4, 1)}
	assert.False(t, IsMonthly(gappy))
}

func TestNormalize(t *testing.T) {
	in := []time.Time{Date(1980, 1, 1), Date(1980, 2, 1), Date(1980, 3, 1)}
	out, monthly := Normalize(in)

	assert.True(t, monthly)
	assert.Equal(t, []time.Time{Date(1980, 1, 31), Date(1980, 2, 29), Date(1980, 3, 31)}, out)
	assert.Equal(t, Date(1980, 1, 1), in[0], "input must not be modified")

	daily := []time.Time{Date(1980, 1, 1), Date(1980, 1, 2)}
	out, monthly = Normalize(daily)
	assert.False(t, monthly)
	assert.Equal(t, daily, out)
}

func TestQuarterOf(t *testing.T) {
	assert.Equal(t, Quarter{1990, 1}, QuarterOf(Date(1990, 3, 31)))
	assert.Equal(t, Quarter{1990, 2}, QuarterOf(Date(1990, 4, 1)))
	assert.Equal(t, Quarter{1990, 4}, QuarterOf(Date(1990, 12, 31)))
	assert.Equal(t, "1990Q4", QuarterOf(Date(1990, 12, 31)).String())
}
