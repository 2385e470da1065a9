package analytics

import (
	"sort"
	"time"

	"repo-insights/internal/github"
)

// TimelinePoint is pull-request activity on one calendar date (UTC).
type TimelinePoint struct {
	Date   string `json:"date"`
	Opened int    `json:"opened"`
	Merged int    `json:"merged"`
	Closed int    `json:"closed"`
}

// Timeline is per-date counts of opened, merged and closed pull requests.
type Timeline struct {
	Points      []TimelinePoint `json:"points"`
	TotalOpened int             `json:"total_opened"`
	TotalMerged int             `json:"total_merged"`
	TotalClosed int             `json:"total_closed"`
}

// ComputeTimeline builds the PR timeline. Each PR contributes one opened
// increment at its creation date and either one merged increment at its
// merge date or one closed increment at its close date when it was
// closed without merging, so a single PR touches at most two dates.
// Dates are ascending.
func ComputeTimeline(prs []github.PullRequest) Timeline {
	tl := Timeline{Points: []TimelinePoint{}}
	byDate := make(map[string]*TimelinePoint)

	point := func(t time.Time) *TimelinePoint {
		date := t.UTC().Format("2006-01-02")
		if p, ok := byDate[date]; ok {
			return p
		}
		p := &TimelinePoint{Date: date}
		byDate[date] = p
		return p
	}

	for _, pr := range prs {
		if !pr.CreatedAt.IsZero() {
			point(pr.CreatedAt).Opened++
			tl.TotalOpened++
		}
		switch {
		case pr.MergedAt != nil && !pr.MergedAt.IsZero():
			point(*pr.MergedAt).Merged++
			tl.TotalMerged++
		case pr.ClosedAt != nil && !pr.ClosedAt.IsZero():
			point(*pr.ClosedAt).Closed++
			tl.TotalClosed++
		}
	}

	for _, p := range byDate {
		tl.Points = append(tl.Points, *p)
	}
	sort.Slice(tl.Points, func(i, j int) bool { return tl.Points[i].Date < tl.Points[j].Date })
	return tl
}
