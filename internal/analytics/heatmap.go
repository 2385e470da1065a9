package analytics

import (
	"sort"
	"time"

	"repo-insights/internal/github"
)

// HeatmapBucket is the commit activity for one day of the week.
type HeatmapBucket struct {
	Day          time.Weekday `json:"day"`
	Count        int          `json:"count"`
	Contributors []string     `json:"contributors,omitempty"` // distinct, sorted
}

// Heatmap is commit activity bucketed by day of week, Sunday first.
type Heatmap struct {
	Total         int              `json:"total"`
	Buckets       [7]HeatmapBucket `json:"buckets"`
	PeakDay       time.Weekday     `json:"peak_day"`
	PeakCount     int              `json:"peak_count"`
	AveragePerDay float64          `json:"average_per_day"`
}

// ComputeHeatmap buckets commits by day of week in UTC. Commits with a
// zero date are skipped. A nil or empty input yields the canonical empty
// heatmap with Sunday as the default peak day.
//
// AveragePerDay always divides by 7: it is an average across the seven
// weekday buckets, not a per-calendar-day average.
func ComputeHeatmap(commits []github.Commit) Heatmap {
	var hm Heatmap
	contribs := [7]map[string]struct{}{}
	for i := range hm.Buckets {
		hm.Buckets[i].Day = time.Weekday(i)
		contribs[i] = make(map[string]struct{})
	}

	for _, c := range commits {
		if c.Date.IsZero() {
			continue
		}
		day := c.Date.UTC().Weekday()
		hm.Buckets[day].Count++
		hm.Total++
		if id := ContributorOf(c); id.Value != "" {
			contribs[day][id.Value] = struct{}{}
		}
	}

	for i := range hm.Buckets {
		names := make([]string, 0, len(contribs[i]))
		for name := range contribs[i] {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 0 {
			hm.Buckets[i].Contributors = names
		}
		// Ties keep the earliest day in Sunday-first order.
		if hm.Buckets[i].Count > hm.PeakCount {
			hm.PeakCount = hm.Buckets[i].Count
			hm.PeakDay = hm.Buckets[i].Day
		}
	}

	hm.AveragePerDay = float64(hm.Total) / 7
	return hm
}
