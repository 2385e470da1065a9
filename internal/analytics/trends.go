package analytics

import (
	"sort"
	"time"

	"repo-insights/internal/github"
)

// IdentityKind tags how a contributor identity was derived.
type IdentityKind string

const (
	// IdentityHandle is a stable account handle.
	IdentityHandle IdentityKind = "handle"
	// IdentityDisplayName is the free-text author name, used only when no
	// handle is available.
	IdentityDisplayName IdentityKind = "display_name"
)

// ContributorID is a tagged contributor identity. Grouping is strict
// equality on the tagged value: two commits from the same human under
// different raw name strings are not merged. That is the documented
// contract, not an incidental quirk.
type ContributorID struct {
	Kind  IdentityKind `json:"kind"`
	Value string       `json:"value"`
}

// ContributorOf derives the identity for a commit, preferring the
// account handle over the display name.
func ContributorOf(c github.Commit) ContributorID {
	if c.AuthorLogin != "" {
		return ContributorID{Kind: IdentityHandle, Value: c.AuthorLogin}
	}
	return ContributorID{Kind: IdentityDisplayName, Value: c.AuthorName}
}

// TrendDirection compares a point to the immediately preceding one.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// TrendPoint is one bucket in a trend sequence.
type TrendPoint struct {
	Period    string         `json:"period"` // bucket label
	Start     time.Time      `json:"start"`
	Count     int            `json:"count"`
	Direction TrendDirection `json:"direction"`
}

// ContributorTrend is the bucketed activity of one contributor.
type ContributorTrend struct {
	Contributor ContributorID `json:"contributor"`
	Points      []TrendPoint  `json:"points"`
	Total       int           `json:"total"`
	Active      bool          `json:"active"` // count>0 bucket within the last 30 days
	Pattern     Pattern       `json:"pattern"`
}

// ContributorTrendResult is the per-contributor trend breakdown.
type ContributorTrendResult struct {
	Granularity  Granularity        `json:"granularity"`
	Contributors []ContributorTrend `json:"contributors"`
}

// ComputeContributorTrends groups commits by tagged contributor identity
// and buckets each contributor's activity at the period's granularity.
func ComputeContributorTrends(commits []github.Commit, period Period) ContributorTrendResult {
	return contributorTrendsAt(commits, period, time.Now())
}

func contributorTrendsAt(commits []github.Commit, period Period, now time.Time) ContributorTrendResult {
	g := period.Granularity()
	result := ContributorTrendResult{
		Granularity:  g,
		Contributors: []ContributorTrend{},
	}

	// Bucket counts per contributor, preserving first-encounter order so
	// output is deterministic for equal totals.
	counts := make(map[ContributorID]map[time.Time]int)
	var order []ContributorID
	for _, c := range commits {
		if c.Date.IsZero() {
			continue
		}
		id := ContributorOf(c)
		if id.Value == "" {
			continue
		}
		if counts[id] == nil {
			counts[id] = make(map[time.Time]int)
			order = append(order, id)
		}
		counts[id][bucketStart(c.Date, g)]++
	}

	activeCutoff := now.AddDate(0, 0, -30)
	for _, id := range order {
		points := buildTrendPoints(counts[id], g)
		trend := ContributorTrend{Contributor: id, Points: points}
		values := make([]float64, len(points))
		for i, p := range points {
			trend.Total += p.Count
			values[i] = float64(p.Count)
			if p.Count > 0 && !p.Start.Before(activeCutoff) {
				trend.Active = true
			}
		}
		trend.Pattern = AnalyzePattern(values)
		result.Contributors = append(result.Contributors, trend)
	}

	sort.SliceStable(result.Contributors, func(i, j int) bool {
		return result.Contributors[i].Total > result.Contributors[j].Total
	})
	return result
}

// buildTrendPoints turns bucket counts into a date-ascending sequence
// with directions. The first point is always stable; later points compare
// strictly to the immediately preceding point.
func buildTrendPoints(counts map[time.Time]int, g Granularity) []TrendPoint {
	starts := make([]time.Time, 0, len(counts))
	for s := range counts {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	points := make([]TrendPoint, 0, len(starts))
	for i, s := range starts {
		p := TrendPoint{
			Period:    bucketLabel(s, g),
			Start:     s,
			Count:     counts[s],
			Direction: TrendStable,
		}
		if i > 0 {
			switch prev := points[i-1].Count; {
			case p.Count > prev:
				p.Direction = TrendUp
			case p.Count < prev:
				p.Direction = TrendDown
			}
		}
		points = append(points, p)
	}
	return points
}
