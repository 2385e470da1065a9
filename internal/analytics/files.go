package analytics

import (
	"sort"
	"time"

	"repo-insights/internal/github"
)

// Recency cutoffs for file activity flags.
const (
	recentlyActiveDays = 30
	staleDays          = 90
)

// minHotspotCount is the floor for the hotspot threshold.
const minHotspotCount = 5

// FileStat is the change activity of one file across the analyzed
// commits.
type FileStat struct {
	Filename       string       `json:"filename"`
	Type           FileType     `json:"type"`
	Count          int          `json:"count"`
	Percentage     float64      `json:"percentage"`
	LastChanged    time.Time    `json:"last_changed"`
	Deleted        bool         `json:"deleted"`
	Hotspot        bool         `json:"hotspot"`
	RecentlyActive bool         `json:"recently_active"`
	Stale          bool         `json:"stale"`
	Trend          []TrendPoint `json:"trend,omitempty"`
}

// TypeBreakdown is the change share of one file category.
type TypeBreakdown struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// FileChangeAnalysis is the per-file and per-category change breakdown.
type FileChangeAnalysis struct {
	TotalChanges     int             `json:"total_changes"`
	Files            []FileStat      `json:"files"`
	Types            []TypeBreakdown `json:"types"`
	HotspotThreshold float64         `json:"hotspot_threshold"`
}

// ComputeFileChangeAnalysis tallies change events per file across the
// commits' file lists. Commits with a zero date are skipped entirely.
// Files are sorted descending by count; ties keep encounter order. The
// hotspot threshold is max(1.5 x mean count, 5); a file at or above it
// is a hotspot. Recently-active and stale are measured from the file's
// last change, so a file is never both.
func ComputeFileChangeAnalysis(details []github.CommitDetail, period Period) FileChangeAnalysis {
	return fileChangeAnalysisAt(details, period, time.Now())
}

func fileChangeAnalysisAt(details []github.CommitDetail, period Period, now time.Time) FileChangeAnalysis {
	g := period.Granularity()
	analysis := FileChangeAnalysis{Files: []FileStat{}, Types: []TypeBreakdown{}}

	type fileAgg struct {
		count       int
		lastChanged time.Time
		lastStatus  string
		buckets     map[time.Time]int
	}
	aggs := make(map[string]*fileAgg)
	var order []string

	for _, d := range details {
		if d.Commit.Date.IsZero() {
			continue
		}
		when := d.Commit.Date
		for _, fc := range d.Files {
			agg, ok := aggs[fc.Filename]
			if !ok {
				agg = &fileAgg{buckets: make(map[time.Time]int)}
				aggs[fc.Filename] = agg
				order = append(order, fc.Filename)
			}
			agg.count++
			agg.buckets[bucketStart(when, g)]++
			if when.After(agg.lastChanged) {
				agg.lastChanged = when
				agg.lastStatus = fc.Status
			}
			analysis.TotalChanges++
		}
	}

	if analysis.TotalChanges == 0 {
		return analysis
	}

	mean := float64(analysis.TotalChanges) / float64(len(aggs))
	analysis.HotspotThreshold = 1.5 * mean
	if analysis.HotspotThreshold < minHotspotCount {
		analysis.HotspotThreshold = minHotspotCount
	}

	recentCutoff := now.AddDate(0, 0, -recentlyActiveDays)
	staleCutoff := now.AddDate(0, 0, -staleDays)

	typeCounts := make(map[string]*TypeBreakdown)
	var typeOrder []string
	for _, name := range order {
		agg := aggs[name]
		ft := ClassifyFile(name)
		stat := FileStat{
			Filename:       name,
			Type:           ft,
			Count:          agg.count,
			Percentage:     float64(agg.count) / float64(analysis.TotalChanges) * 100,
			LastChanged:    agg.lastChanged,
			Deleted:        agg.lastStatus == "removed",
			Hotspot:        float64(agg.count) >= analysis.HotspotThreshold,
			RecentlyActive: !agg.lastChanged.Before(recentCutoff),
			Stale:          agg.lastChanged.Before(staleCutoff),
			Trend:          buildTrendPoints(agg.buckets, g),
		}
		analysis.Files = append(analysis.Files, stat)

		tb, ok := typeCounts[ft.Category]
		if !ok {
			tb = &TypeBreakdown{Category: ft.Category, Color: ft.Color}
			typeCounts[ft.Category] = tb
			typeOrder = append(typeOrder, ft.Category)
		}
		tb.Count += agg.count
	}

	sort.SliceStable(analysis.Files, func(i, j int) bool {
		return analysis.Files[i].Count > analysis.Files[j].Count
	})

	for _, cat := range typeOrder {
		tb := typeCounts[cat]
		tb.Percentage = float64(tb.Count) / float64(analysis.TotalChanges) * 100
		analysis.Types = append(analysis.Types, *tb)
	}
	sort.SliceStable(analysis.Types, func(i, j int) bool {
		return analysis.Types[i].Count > analysis.Types[j].Count
	})

	return analysis
}
