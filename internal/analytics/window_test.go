package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input   string
		want    Period
		wantErr bool
	}{
		{"30d", Period30Days, false},
		{"90d", Period90Days, false},
		{"3m", Period90Days, false}, // alias
		{"6m", Period6Months, false},
		{"1y", Period1Year, false},
		{"all", PeriodAll, false},
		{"7d", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePeriod(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		assert.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestWindowAt(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		period Period
		days   int
	}{
		{Period30Days, 30},
		{Period90Days, 90},
		{Period6Months, 182},
		{Period1Year, 365},
	}

	for _, tt := range tests {
		w := tt.period.WindowAt(now)
		assert.Equal(t, now.AddDate(0, 0, -tt.days), w.Since, "period %s", tt.period)
		assert.True(t, w.Until.IsZero(), "period %s has no upper bound", tt.period)
	}
}

func TestWindowAtUnbounded(t *testing.T) {
	w := PeriodAll.WindowAt(time.Now())
	assert.True(t, w.IsUnbounded())
}

func TestGranularity(t *testing.T) {
	assert.Equal(t, GranularityDaily, Period30Days.Granularity())
	assert.Equal(t, GranularityWeekly, Period90Days.Granularity())
	assert.Equal(t, GranularityMonthly, Period6Months.Granularity())
	assert.Equal(t, GranularityMonthly, Period1Year.Granularity())
	assert.Equal(t, GranularityMonthly, PeriodAll.Granularity())
}

func TestBucketStart(t *testing.T) {
	// Wednesday, Jan 10 2024 at 15:04 UTC.
	ts := time.Date(2024, 1, 10, 15, 4, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), bucketStart(ts, GranularityDaily))
	// Weeks start on Sunday: Jan 7 2024.
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), bucketStart(ts, GranularityWeekly))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bucketStart(ts, GranularityMonthly))
}

func TestBucketLabel(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-07", bucketLabel(start, GranularityDaily))
	assert.Equal(t, "2024-01-07", bucketLabel(start, GranularityWeekly))
	assert.Equal(t, "2024-01", bucketLabel(start, GranularityMonthly))
}
