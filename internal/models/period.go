package models

import (
	"fmt"
	"time"
)

// ChartPeriod is the enumerated time range for historical data.
// Values match the Yahoo Finance range strings.
type ChartPeriod string

const (
	Period1D  ChartPeriod = "1d"
	Period1W  ChartPeriod = "5d"
	Period1Mo ChartPeriod = "1mo"
	Period1Y  ChartPeriod = "1y"
	Period5Y  ChartPeriod = "5y"
	Period10Y ChartPeriod = "10y"
	PeriodAll ChartPeriod = "max"
)

// ChartPeriods lists the supported periods in display order.
var ChartPeriods = []ChartPeriod{
	Period1D, Period1W, Period1Mo, Period1Y, Period5Y, Period10Y, PeriodAll,
}

// ParseChartPeriod validates a period string.
func ParseChartPeriod(s string) (ChartPeriod, error) {
	for _, p := range ChartPeriods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported chart period %q", s)
}

// Valid reports whether p is one of the supported periods.
func (p ChartPeriod) Valid() bool {
	_, err := ParseChartPeriod(string(p))
	return err == nil
}

// Label returns the human-readable name shown in the popup.
func (p ChartPeriod) Label() string {
	switch p {
	case Period1D:
		return "1 day"
	case Period1W:
		return "1 week"
	case Period1Mo:
		return "1 month"
	case Period1Y:
		return "1 year"
	case Period5Y:
		return "5 year"
	case Period10Y:
		return "10 year"
	case PeriodAll:
		return "All time"
	}
	return string(p)
}

// BarInterval returns the upstream bar granularity for the period:
// intraday bars for short ranges, daily bars otherwise.
func (p ChartPeriod) BarInterval() string {
	switch p {
	case Period1D:
		return "5m"
	case Period1W:
		return "15m"
	}
	return "1d"
}

// StalenessWindow returns how old a cached series for this period may
// get before the scheduler re-fetches it. Short ranges move fast and
// go stale quickly; multi-year ranges barely change within a day.
func (p ChartPeriod) StalenessWindow() time.Duration {
	switch p {
	case Period1D:
		return 5 * time.Minute
	case Period1W:
		return 15 * time.Minute
	case Period1Mo:
		return 1 * time.Hour
	case Period1Y:
		return 6 * time.Hour
	}
	return 24 * time.Hour
}

// RefreshIntervals is the enumerated set of allowed refresh intervals,
// in seconds.
var RefreshIntervals = []int{60, 180, 300, 600}

// ValidRefreshInterval reports whether seconds is an allowed interval.
func ValidRefreshInterval(seconds int) bool {
	for _, v := range RefreshIntervals {
		if v == seconds {
			return true
		}
	}
	return false
}

// IntervalLabel formats an interval for display ("1 min", "10 min").
func IntervalLabel(seconds int) string {
	return fmt.Sprintf("%d min", seconds/60)
}
