// Package analytics turns raw repository records into time-bucketed aggregates.
package analytics

import (
	"fmt"
	"time"
)

// Period is a symbolic time range requested by the dashboard.
type Period string

const (
	Period30Days  Period = "30d"
	Period90Days  Period = "90d"
	Period6Months Period = "6m"
	Period1Year   Period = "1y"
	PeriodAll     Period = "all"
)

// Granularity is the bucket size used for trend sequences.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// TimeWindow holds concrete date bounds for a query. A zero Since or
// Until means that side is unbounded.
type TimeWindow struct {
	Since time.Time
	Until time.Time
}

// IsUnbounded reports whether the window has no bounds at all.
func (w TimeWindow) IsUnbounded() bool {
	return w.Since.IsZero() && w.Until.IsZero()
}

// ParsePeriod validates a raw period token.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case Period30Days, Period90Days, Period6Months, Period1Year, PeriodAll:
		return Period(s), nil
	case "3m":
		// Accepted alias for 90 days.
		return Period90Days, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Days returns the lookback span in days, or 0 for the unbounded period.
func (p Period) Days() int {
	switch p {
	case Period30Days:
		return 30
	case Period90Days:
		return 90
	case Period6Months:
		return 182
	case Period1Year:
		return 365
	default:
		return 0
	}
}

// Window resolves the period against the current instant.
func (p Period) Window() TimeWindow {
	return p.WindowAt(time.Now())
}

// WindowAt resolves the period against the given instant. PeriodAll
// yields an unbounded window; every other period yields a lower bound
// only.
func (p Period) WindowAt(now time.Time) TimeWindow {
	days := p.Days()
	if days == 0 {
		return TimeWindow{}
	}
	return TimeWindow{Since: now.AddDate(0, 0, -days)}
}

// Granularity maps the period to a trend bucket size. Longer ranges get
// coarser buckets so point counts stay bounded.
func (p Period) Granularity() Granularity {
	switch p {
	case Period30Days:
		return GranularityDaily
	case Period90Days:
		return GranularityWeekly
	default:
		return GranularityMonthly
	}
}

// bucketStart truncates t (in UTC) to the start of its bucket. Weeks
// start on Sunday to match heatmap day enumeration.
func bucketStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	switch g {
	case GranularityWeekly:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -int(day.Weekday()))
	case GranularityMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// bucketLabel formats a bucket start for display.
func bucketLabel(start time.Time, g Granularity) string {
	if g == GranularityMonthly {
		return start.Format("2006-01")
	}
	return start.Format("2006-01-02")
}
