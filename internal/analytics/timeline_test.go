package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-insights/internal/github"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC)
}

func TestComputeTimeline(t *testing.T) {
	merged := day(3)
	closed := day(4)
	prs := []github.PullRequest{
		{Number: 1, CreatedAt: day(1), MergedAt: &merged},
		{Number: 2, CreatedAt: day(2), ClosedAt: &closed},
		{Number: 3, CreatedAt: day(2)}, // still open
	}

	tl := ComputeTimeline(prs)

	assert.Equal(t, 3, tl.TotalOpened)
	assert.Equal(t, 1, tl.TotalMerged)
	assert.Equal(t, 1, tl.TotalClosed)

	require.Len(t, tl.Points, 4)
	assert.Equal(t, TimelinePoint{Date: "2024-01-01", Opened: 1}, tl.Points[0])
	assert.Equal(t, TimelinePoint{Date: "2024-01-02", Opened: 2}, tl.Points[1])
	assert.Equal(t, TimelinePoint{Date: "2024-01-03", Merged: 1}, tl.Points[2])
	assert.Equal(t, TimelinePoint{Date: "2024-01-04", Closed: 1}, tl.Points[3])
}

func TestComputeTimelineMergedWinsOverClosed(t *testing.T) {
	// GitHub sets both timestamps on a merged PR. It must count as merged
	// only, never as closed too.
	merged := day(5)
	closed := day(5)
	prs := []github.PullRequest{
		{Number: 1, CreatedAt: day(1), MergedAt: &merged, ClosedAt: &closed},
	}

	tl := ComputeTimeline(prs)

	assert.Equal(t, 1, tl.TotalMerged)
	assert.Equal(t, 0, tl.TotalClosed)
}

func TestComputeTimelineSameDayOpenAndMerge(t *testing.T) {
	merged := day(1).Add(2 * time.Hour)
	prs := []github.PullRequest{
		{Number: 1, CreatedAt: day(1), MergedAt: &merged},
	}

	tl := ComputeTimeline(prs)

	require.Len(t, tl.Points, 1)
	assert.Equal(t, TimelinePoint{Date: "2024-01-01", Opened: 1, Merged: 1}, tl.Points[0])
}

func TestComputeTimelineSkipsZeroCreation(t *testing.T) {
	prs := []github.PullRequest{{Number: 1}}

	tl := ComputeTimeline(prs)

	assert.Equal(t, 0, tl.TotalOpened)
	assert.Empty(t, tl.Points)
}

func TestComputeTimelineEmpty(t *testing.T) {
	tl := ComputeTimeline(nil)
	assert.NotNil(t, tl.Points)
	assert.Empty(t, tl.Points)
}
